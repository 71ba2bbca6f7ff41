package tools

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/moneyfmt"
)

// LoadOrderHistoryInput parameterizes loadOrderHistory.
type LoadOrderHistoryInput struct {
	MaxOrders int
}

// LoadOrderHistoryOutput reports the extracted order summaries and whether
// more orders exist beyond MaxOrders.
type LoadOrderHistoryOutput struct {
	Orders         []model.OrderSummary
	TotalAvailable int
	HasMore        bool
}

// orderCardFields is what CardExtractor needs to read off one order card.
type orderCardFields struct {
	OrderID      string
	DateText     string
	ProductCount string
	TotalText    string
	DetailURL    string
}

// CardExtractor abstracts the DOM-specific part of reading one order card's
// fields, so LoadOrderHistory's control flow (enumerate, skip malformed,
// stop at maxOrders) is independent of the concrete selector/attribute
// layout, and is unit-testable without a fake Page.
type CardExtractor func(ctx context.Context, tc *ToolContext, card Card) (orderCardFields, error)

// Card is one resolved order-card element plus its index, passed to the
// extractor.
type Card struct {
	Index   int
	Element interface{ Text(context.Context) (string, error) }
}

// LoadOrderHistory enumerates order cards inside the resolved container,
// extracting {orderId, date, productCount, totalPrice, detailUrl} for each.
// Malformed cards are skipped with a warning; extraction stops at MaxOrders.
func LoadOrderHistory(ctx context.Context, tc *ToolContext, in LoadOrderHistoryInput, extract CardExtractor, warn func(string)) Result[LoadOrderHistoryOutput] {
	start := time.Now()
	maxOrders := in.MaxOrders
	if maxOrders <= 0 {
		maxOrders = tc.Config.MaxOrders
	}

	containerSel, ok := tc.Resolver.ResolveOnly("order-history", "orderList")
	if !ok {
		return fail[LoadOrderHistoryOutput](newError(model.ErrSelector, true, nil), nil, start)
	}
	cardSel, ok := tc.Resolver.ResolveOnly("order-history", "orderCard")
	if !ok {
		return fail[LoadOrderHistoryOutput](newError(model.ErrSelector, true, nil), nil, start)
	}

	containers, err := tc.Page.Query(ctx, containerSel)
	if err != nil {
		return fail[LoadOrderHistoryOutput](newError(model.ErrSelector, true, err), nil, start)
	}
	if len(containers) == 0 {
		return ok(LoadOrderHistoryOutput{}, nil, start)
	}

	cardElements, err := tc.Page.Query(ctx, cardSel)
	if err != nil {
		return fail[LoadOrderHistoryOutput](newError(model.ErrSelector, true, err), nil, start)
	}

	totalAvailable := len(cardElements)
	var orders []model.OrderSummary

	for i, el := range cardElements {
		if len(orders) >= maxOrders {
			break
		}

		fields, err := extract(ctx, tc, Card{Index: i, Element: el})
		if err != nil {
			if warn != nil {
				warn("skipping malformed order card at index " + itoa(i) + ": " + err.Error())
			}
			continue
		}

		total, terr := moneyfmt.ParsePrice(fields.TotalText)
		if terr != nil {
			total = decimal.Zero
		}
		count, cerr := parseCount(fields.ProductCount)
		if cerr != nil {
			count = 0
		}
		date, derr := parseOrderDate(fields.DateText)
		if derr != nil {
			if warn != nil {
				warn("skipping order card with unparseable date at index " + itoa(i))
			}
			continue
		}

		orders = append(orders, model.OrderSummary{
			OrderID:      fields.OrderID,
			Date:         date,
			ProductCount: count,
			TotalPrice:   total,
			DetailURL:    fields.DetailURL,
		})
	}

	return ok(LoadOrderHistoryOutput{
		Orders:         orders,
		TotalAvailable: totalAvailable,
		HasMore:        totalAvailable > len(orders),
	}, nil, start)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func parseCount(s string) (int, error) {
	return moneyfmt.ParseQuantity(s)
}

// parseOrderDate parses Auchan's pt-PT "dd/mm/yyyy" order-date display.
func parseOrderDate(s string) (time.Time, error) {
	return time.Parse("02/01/2006", strings.TrimSpace(s))
}
