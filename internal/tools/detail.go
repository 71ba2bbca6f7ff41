package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/moneyfmt"
)

// LoadOrderDetailInput parameterizes loadOrderDetail.
type LoadOrderDetailInput struct {
	DetailURL     string
	ExpandAll     bool // click "view all" if present and requested
}

// RawLineItem is what a DOM-specific row extractor hands back for one
// product row, before parsing prices/quantities.
type RawLineItem struct {
	ProductID string
	Name      string
	URL       string
	ImageURL  string
	QtyText   string
	PriceText string
}

// DetailExtractor abstracts reading header, delivery, cost summary, and
// line items off a loaded order-detail page.
type DetailExtractor interface {
	Header(ctx context.Context, tc *ToolContext) (model.OrderSummary, error)
	Delivery(ctx context.Context, tc *ToolContext) (model.DeliveryInfo, error)
	CostSummary(ctx context.Context, tc *ToolContext) (model.CostSummary, error)
	LineItems(ctx context.Context, tc *ToolContext) ([]RawLineItem, error)
	HasExpandControl(ctx context.Context, tc *ToolContext) (bool, error)
	ClickExpand(ctx context.Context, tc *ToolContext) error
}

// LoadOrderDetail navigates to DetailURL, optionally expands the full line
// item list, extracts header/delivery/cost/items, and validates the whole
// object against the OrderDetail schema invariant (Σ items.qty*unit ≈
// costSummary.subtotal, tolerance 1¢×n), rejecting the tool result on
// failure.
func LoadOrderDetail(ctx context.Context, tc *ToolContext, in LoadOrderDetailInput, extractor DetailExtractor) Result[model.OrderDetail] {
	start := time.Now()

	if err := tc.Page.Goto(ctx, in.DetailURL); err != nil {
		return fail[model.OrderDetail](newError(model.ErrTimeout, true, err), nil, start)
	}

	if in.ExpandAll {
		hasExpand, err := extractor.HasExpandControl(ctx, tc)
		if err == nil && hasExpand {
			if err := extractor.ClickExpand(ctx, tc); err != nil {
				return fail[model.OrderDetail](newError(model.ErrSelector, true, err), nil, start)
			}
		}
	}

	header, err := extractor.Header(ctx, tc)
	if err != nil {
		return fail[model.OrderDetail](newError(model.ErrValidation, true, err), nil, start)
	}
	delivery, err := extractor.Delivery(ctx, tc)
	if err != nil {
		return fail[model.OrderDetail](newError(model.ErrValidation, true, err), nil, start)
	}
	costSummary, err := extractor.CostSummary(ctx, tc)
	if err != nil {
		return fail[model.OrderDetail](newError(model.ErrValidation, true, err), nil, start)
	}
	rawItems, err := extractor.LineItems(ctx, tc)
	if err != nil {
		return fail[model.OrderDetail](newError(model.ErrValidation, true, err), nil, start)
	}

	items := make([]model.OrderLineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		qty, qerr := moneyfmt.ParseQuantity(raw.QtyText)
		if qerr != nil {
			continue
		}
		price, perr := moneyfmt.ParsePrice(raw.PriceText)
		if perr != nil {
			continue
		}
		items = append(items, model.OrderLineItem{
			ProductID: raw.ProductID,
			Name:      raw.Name,
			URL:       raw.URL,
			ImageURL:  raw.ImageURL,
			Quantity:  qty,
			UnitPrice: price,
		})
	}

	detail := model.OrderDetail{
		OrderSummary: header,
		Items:        items,
		Delivery:     delivery,
		CostSummary:  costSummary,
	}

	if err := validateOrderDetail(detail); err != nil {
		return fail[model.OrderDetail](newError(model.ErrValidation, false, err), nil, start)
	}

	return ok(detail, nil, start)
}

// validateOrderDetail enforces §3's OrderDetail schema invariant:
// Σ items.qty*unit ≈ costSummary.subtotal, tolerance 1¢×n.
func validateOrderDetail(d model.OrderDetail) error {
	sum := decimal.Zero
	for _, item := range d.Items {
		sum = sum.Add(item.LineTotal())
	}
	if !moneyfmt.WithinTolerance(sum, d.CostSummary.Subtotal, len(d.Items)) {
		return fmt.Errorf("order detail %s: line items sum %s does not match subtotal %s within tolerance",
			d.OrderID, sum, d.CostSummary.Subtotal)
	}
	return nil
}
