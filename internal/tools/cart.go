package tools

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser"
	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/moneyfmt"
)

// ScanCartInput parameterizes scanCart.
type ScanCartInput struct {
	IncludeOutOfStock bool
}

// RawCartRow is what a DOM-specific extraction strategy hands back for one
// cart row, before quantity/price parsing.
type RawCartRow struct {
	ProductID   string
	Name        string
	QtyText     string
	PriceText   string
	Unavailable bool
}

// CartExtractStrategy is one of the three layered strategies §4.3 names:
// (1) known cart-item class, (2) rows with both a product link and quantity
// controls, (3) a data-layer reflection. Strategies are tried in order; the
// first to return any rows wins.
type CartExtractStrategy func(ctx context.Context, tc *ToolContext) ([]RawCartRow, error)

// EmptyCartDetector reports whether the page shows an empty-cart indicator.
type EmptyCartDetector func(ctx context.Context, tc *ToolContext) (bool, error)

// PageTotalReader reads the cart total as displayed on the page, when
// present.
type PageTotalReader func(ctx context.Context, tc *ToolContext) (decimal.Decimal, bool, error)

// ScanCart ensures no popups block the page, detects an empty cart, and
// otherwise extracts items via the layered strategy list. Prices are parsed
// in Portuguese locale; quantities from inputs or a between-button display.
// Availability is true unless the row is flagged unavailable. The cart
// total is taken from the page when present, else Σ qty×unit over
// available items.
func ScanCart(ctx context.Context, tc *ToolContext, in ScanCartInput, popupPatterns []browser.PopupPattern, isEmpty EmptyCartDetector, strategies []CartExtractStrategy, pageTotal PageTotalReader) Result[model.CartSnapshot] {
	start := time.Now()

	if _, err := tc.Interactor.DismissPopups(ctx, popupPatterns, tc.Config.PopupDismissRounds); err != nil {
		return fail[model.CartSnapshot](newError(model.ErrSelector, true, err), nil, start)
	}

	empty, err := isEmpty(ctx, tc)
	if err != nil {
		return fail[model.CartSnapshot](newError(model.ErrSelector, true, err), nil, start)
	}
	if empty {
		return ok(model.CartSnapshot{Timestamp: time.Now(), ItemCount: 0, TotalPrice: decimal.Zero}, nil, start)
	}

	var rawRows []RawCartRow
	for _, strategy := range strategies {
		rows, serr := strategy(ctx, tc)
		if serr != nil {
			continue
		}
		if len(rows) > 0 {
			rawRows = rows
			break
		}
	}

	items := make([]model.CartItem, 0, len(rawRows))
	sum := decimal.Zero
	for _, row := range rawRows {
		if row.Unavailable && !in.IncludeOutOfStock {
			continue
		}
		qty, qerr := moneyfmt.ParseQuantity(row.QtyText)
		if qerr != nil {
			qty = 1
		}
		price, perr := moneyfmt.ParsePrice(row.PriceText)
		if perr != nil {
			price = decimal.Zero
		}
		item := model.CartItem{
			ProductID: row.ProductID,
			Name:      row.Name,
			Quantity:  qty,
			UnitPrice: price,
			Available: !row.Unavailable,
		}
		items = append(items, item)
		if item.Available {
			sum = sum.Add(item.LineTotal())
		}
	}

	total := sum
	if pageTotal != nil {
		if t, found, terr := pageTotal(ctx, tc); terr == nil && found {
			total = t
		}
	}

	return ok(model.CartSnapshot{
		Timestamp:  time.Now(),
		Items:      items,
		ItemCount:  len(items),
		TotalPrice: total,
	}, nil, start)
}
