// Package model holds the data entities of spec §3, shared by every
// component so each package can depend on the shapes without depending on
// each other's implementation.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is one of the Orchestrator's states (§4.7).
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusPaused    RunStatus = "paused"
	StatusReview    RunStatus = "review"
	StatusComplete  RunStatus = "complete"
	StatusCancelled RunStatus = "cancelled"
)

// RunError carries the recoverable flag required on every surfaced error
// (§7): automation never silently proceeds past a failure.
type RunError struct {
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// RunState is the Orchestrator's persisted checkpoint (§3, §4.7). It is
// created at START_RUN and persisted on every change. It is not cleared when
// a run ends: it stays persisted with its final status (cancelled or
// complete) until the next START_RUN replaces it.
type RunState struct {
	RunID          string      `json:"runId"`
	Status         RunStatus   `json:"status"`
	Phase          string      `json:"phase"`
	Checkpoint     string      `json:"checkpoint"`
	RecoveryNeeded bool        `json:"recoveryNeeded"`
	Error          *RunError   `json:"error,omitempty"`
	StartedAt      time.Time   `json:"startedAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	ReviewPack     *ReviewPack `json:"reviewPack,omitempty"`
}

// OrderSummary is one row of order-history list extraction (§4.3).
type OrderSummary struct {
	OrderID      string          `json:"orderId"`
	Date         time.Time       `json:"date"`
	ProductCount int             `json:"productCount"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	DetailURL    string          `json:"detailUrl"`
}

// OrderLineItem is one product row within an OrderDetail.
type OrderLineItem struct {
	ProductID   string          `json:"productId,omitempty"`
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// LineTotal returns Quantity * UnitPrice.
func (i OrderLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CostSummary is the order detail's cost breakdown.
type CostSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Delivery decimal.Decimal `json:"delivery"`
	Total    decimal.Decimal `json:"total"`
}

// DeliveryInfo describes when/where an order was delivered.
type DeliveryInfo struct {
	Date    time.Time `json:"date"`
	Address string    `json:"address"`
}

// OrderDetail is the full extraction of one order's detail page (§3, §4.3).
type OrderDetail struct {
	OrderSummary
	Items       []OrderLineItem `json:"items"`
	Delivery    DeliveryInfo    `json:"delivery"`
	CostSummary CostSummary     `json:"costSummary"`
}

// CartItem is one line of a CartSnapshot.
type CartItem struct {
	ProductID  string          `json:"productId,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Available  bool            `json:"available"`
}

// LineTotal returns Quantity * UnitPrice.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Identity returns ProductID when present, else the normalized name — the
// identity rule used throughout §3 and §4.4.
func (i CartItem) Identity(normalize func(string) string) string {
	if i.ProductID != "" {
		return i.ProductID
	}
	return normalize(i.Name)
}

// CartSnapshot is a point-in-time capture of the live cart (§3, §4.3).
type CartSnapshot struct {
	Timestamp  time.Time       `json:"timestamp"`
	Items      []CartItem      `json:"items"`
	ItemCount  int             `json:"itemCount"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// PurchaseRecord is one historical purchase line feeding the analytics
// engine (§3, §4.4).
type PurchaseRecord struct {
	ProductID    string    `json:"productId,omitempty"`
	ProductName  string    `json:"productName"`
	PurchaseDate time.Time `json:"purchaseDate"`
	Quantity     int       `json:"quantity"`
	OrderID      string    `json:"orderId"`
}

// Identity returns ProductID when present, else the normalized name.
func (r PurchaseRecord) Identity(normalize func(string) string) string {
	if r.ProductID != "" {
		return r.ProductID
	}
	return normalize(r.ProductName)
}

// VelocityTrend classifies a product's purchase-interval trend (§4.4).
type VelocityTrend string

const (
	TrendAccelerating VelocityTrend = "accelerating"
	TrendDecelerating VelocityTrend = "decelerating"
	TrendStable       VelocityTrend = "stable"
)

// IntervalStats summarizes inter-purchase intervals in days.
type IntervalStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	CV     float64 `json:"cv"`
}

// QuantityStats summarizes per-purchase quantities.
type QuantityStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Mode   float64 `json:"mode"`
	Total  float64 `json:"total"`
}

// TrendStats is the §4.4 trend block.
type TrendStats struct {
	Delta         float64       `json:"delta"`
	Slope         float64       `json:"slope"`
	RSquared      float64       `json:"rSquared"`
	VelocityTrend VelocityTrend `json:"velocityTrend"`
}

// SeasonalityStats is the §4.4 seasonality block.
type SeasonalityStats struct {
	Score               float64 `json:"score"`
	PeakMonth           int     `json:"peakMonth"`
	TroughMonth         int     `json:"troughMonth"`
	IsCurrentlyPeakSeason bool  `json:"isCurrentlyPeakSeason"`
}

// CoPurchase is one edge of the co-purchase graph.
type CoPurchase struct {
	ProductID      string  `json:"productId"`
	CoOccurrence   int     `json:"coOccurrence"`
	Lift           float64 `json:"lift"`
}

// ProductAnalytics is the full per-product derived structure (§3, §4.4).
type ProductAnalytics struct {
	ProductIdentity       string             `json:"productIdentity"`
	Interval              IntervalStats      `json:"interval"`
	Quantity              QuantityStats      `json:"quantity"`
	Trend                 TrendStats         `json:"trend"`
	Seasonality           SeasonalityStats   `json:"seasonality"`
	FrequentlyBoughtWith  []CoPurchase       `json:"frequentlyBoughtWith"`
	AnalyticsConfidence   float64            `json:"analyticsConfidence"`
}

// PruneDecision is the per-cart-item-per-run pruning verdict (§3, §4.5).
type PruneDecision struct {
	ProductID  string         `json:"productId"`
	Prune      bool           `json:"prune"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	Context    map[string]any `json:"context,omitempty"`
}

// OverrideDirective is one UserOverride directive kind.
type OverrideDirective string

const (
	OverrideAlwaysPrune OverrideDirective = "alwaysPrune"
	OverrideNeverPrune  OverrideDirective = "neverPrune"
	OverrideCadenceDays OverrideDirective = "customCadenceDays"
)

// UserOverride is a persisted user directive keyed by product identity
// (§3). At most one positive directive may be set at a time.
type UserOverride struct {
	ProductID         string             `json:"productId"`
	Directive         OverrideDirective  `json:"directive"`
	CustomCadenceDays int                `json:"customCadenceDays,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// DiffLine describes one item's quantity change in a CartDiff.
type DiffLine struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	BeforeQty   int    `json:"beforeQty"`
	AfterQty    int    `json:"afterQty"`
}

// CartDiff is the §3/§4.6 diff between a before and after CartSnapshot.
type CartDiff struct {
	Added            []CartItem  `json:"added"`
	Removed          []CartItem  `json:"removed"`
	QuantityChanged  []DiffLine  `json:"quantityChanged"`
	Unchanged        []CartItem  `json:"unchanged"`
	Summary          DiffSummary `json:"summary"`
}

// DiffSummary is the CartDiff's aggregate view.
type DiffSummary struct {
	PriceDifference decimal.Decimal `json:"priceDifference"`
	ItemsAdded      int             `json:"itemsAdded"`
	ItemsRemoved    int             `json:"itemsRemoved"`
	ItemsChanged    int             `json:"itemsChanged"`
}

// ReviewWarning surfaces a non-fatal concern alongside the review pack
// (fallback selector used, malformed record skipped, danger modal avoided).
type ReviewWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReviewPack is the final, human-consumed artifact of a run (§3, §4.6). It
// is emitted only when the state machine reaches the review state.
type ReviewPack struct {
	RunID       string            `json:"runId"`
	Diff        CartDiff          `json:"diff"`
	Decisions   []PruneDecision   `json:"decisions"`
	Warnings    []ReviewWarning   `json:"warnings"`
	Screenshots [][]byte          `json:"screenshots"`
	Confidence  float64           `json:"confidence"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// ErrorCode enumerates the protocol error taxonomy (§6, §7). New codes may be
// added (open-ended) but these are the ones named in spec.md.
type ErrorCode string

const (
	ErrInvalidState    ErrorCode = "INVALID_STATE"
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrWrongPage       ErrorCode = "WRONG_PAGE"
	ErrAuth            ErrorCode = "AUTH_ERROR"
	ErrSelector        ErrorCode = "SELECTOR_ERROR"
	ErrTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrAPIKeyInvalid   ErrorCode = "API_KEY_INVALID"
	ErrUnknown         ErrorCode = "UNKNOWN"
)
