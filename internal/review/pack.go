package review

import (
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// Config tunes the run-level confidence blend.
type Config struct {
	// AnalyticsWeight is the share of the blend attributed to average
	// analytics coverage confidence, vs. (1-AnalyticsWeight) for average
	// decision confidence.
	AnalyticsWeight float64
}

func DefaultConfig() Config {
	return Config{AnalyticsWeight: 0.4}
}

// Assembler builds the §4.6 ReviewPack.
type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// BuildInput carries everything the review pack needs beyond the
// before/after snapshots.
type BuildInput struct {
	RunID               string
	Before              model.CartSnapshot
	After               model.CartSnapshot
	Decisions           []model.PruneDecision
	AnalyticsConfidence map[string]float64 // by productId, for the run-level blend
	Warnings            []model.ReviewWarning
	Screenshots         [][]byte
	Normalize           func(string) string
}

// Build computes the diff, merges decisions and warnings, and blends a
// run-level confidence score from analytics coverage and decision
// confidences, per §4.6.
func (a *Assembler) Build(in BuildInput) model.ReviewPack {
	diff := Diff(in.Before, in.After, in.Normalize)

	return model.ReviewPack{
		RunID:       in.RunID,
		Diff:        diff,
		Decisions:   in.Decisions,
		Warnings:    in.Warnings,
		Screenshots: in.Screenshots,
		Confidence:  a.blendConfidence(in.Decisions, in.AnalyticsConfidence),
		GeneratedAt: time.Now(),
	}
}

func (a *Assembler) blendConfidence(decisions []model.PruneDecision, analyticsConfidence map[string]float64) float64 {
	decisionAvg := average(decisionConfidences(decisions))
	analyticsAvg := average(mapValues(analyticsConfidence))

	if len(analyticsConfidence) == 0 {
		return decisionAvg
	}
	if len(decisions) == 0 {
		return analyticsAvg
	}

	w := a.cfg.AnalyticsWeight
	return w*analyticsAvg + (1-w)*decisionAvg
}

func decisionConfidences(decisions []model.PruneDecision) []float64 {
	out := make([]float64, len(decisions))
	for i, d := range decisions {
		out[i] = d.Confidence
	}
	return out
}

func mapValues(m map[string]float64) []float64 {
	out := make([]float64, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
