package analytics

import (
	"sort"
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// Config tunes the thresholds named in §4.4.
type Config struct {
	RecentWindowSize        int
	MinLift                 float64
	MinCoOccurrenceCount    int
	CoPurchaseTopK          int
}

// DefaultConfig returns the spec's implied defaults (recent-window of 3, a
// permissive lift/co-occurrence floor so bundle detection has something to
// work with on modest histories).
func DefaultConfig() Config {
	return Config{
		RecentWindowSize:     3,
		MinLift:              1.2,
		MinCoOccurrenceCount: 2,
		CoPurchaseTopK:       5,
	}
}

// Engine builds ProductAnalytics from purchase history. It only considers
// records whose date is on or before asOf, per §3's derivability invariant
// ("fields derivable only from records whose date ≤ run start").
type Engine struct {
	cfg Config
}

// NewEngine builds an Engine with cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Build computes per-product analytics and the co-purchase graph over
// records, as of asOf. Only records whose PurchaseDate is on or before asOf
// are considered, per §3's derivability invariant.
func (e *Engine) Build(records []model.PurchaseRecord, asOf time.Time) map[string]model.ProductAnalytics {
	eligible := make([]model.PurchaseRecord, 0, len(records))
	for _, r := range records {
		if !r.PurchaseDate.After(asOf) {
			eligible = append(eligible, r)
		}
	}

	byProduct := groupByIdentity(eligible)
	coPurchase := e.buildCoPurchaseGraph(eligible)

	out := make(map[string]model.ProductAnalytics, len(byProduct))
	for identity, recs := range byProduct {
		out[identity] = e.buildOne(identity, recs, coPurchase[identity])
	}
	return out
}

func (e *Engine) buildOne(identity string, recs []model.PurchaseRecord, co []model.CoPurchase) model.ProductAnalytics {
	sort.Slice(recs, func(i, j int) bool { return recs[i].PurchaseDate.Before(recs[j].PurchaseDate) })

	intervalsDays := computeIntervals(recs)
	quantities := make([]float64, len(recs))
	for i, r := range recs {
		quantities[i] = float64(r.Quantity)
	}

	interval := buildIntervalStats(intervalsDays)
	quantity := buildQuantityStats(quantities)
	trend := buildTrend(intervalsDays, e.cfg.RecentWindowSize)
	seasonality := buildSeasonality(recs)
	confidence := clamp(sigmoid((float64(len(recs))-3)/5), 0.1, 0.99)

	limited := co
	if e.cfg.CoPurchaseTopK > 0 && len(limited) > e.cfg.CoPurchaseTopK {
		limited = limited[:e.cfg.CoPurchaseTopK]
	}

	return model.ProductAnalytics{
		ProductIdentity:      identity,
		Interval:             interval,
		Quantity:             quantity,
		Trend:                trend,
		Seasonality:          seasonality,
		FrequentlyBoughtWith: limited,
		AnalyticsConfidence:  confidence,
	}
}

func groupByIdentity(records []model.PurchaseRecord) map[string][]model.PurchaseRecord {
	out := make(map[string][]model.PurchaseRecord)
	for _, r := range records {
		id := r.Identity(Normalize)
		out[id] = append(out[id], r)
	}
	return out
}

