package llmreview

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

func buildPrompt(req BatchRequest) (string, error) {
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal batch request")
	}

	var b strings.Builder
	b.WriteString("You are reviewing a rebuilt household shopping cart. ")
	b.WriteString("For each item in \"underReview\", call make_prune_decision exactly once, ")
	b.WriteString("deciding whether the household likely already has enough of this product ")
	b.WriteString("at home (prune=true) or should keep it in the cart (prune=false). ")
	b.WriteString("Use the cadence, urgency ratio, and bundle context to judge; ")
	b.WriteString("do not change items in \"alreadyKept\" or \"cartProductIds\".\n\n")
	b.WriteString(string(payload))

	return b.String(), nil
}

// Blend implements §4.5's final-decision rule: the LLM decision wins when
// its confidence is at or above threshold; otherwise the heuristic decision
// stands. A winning LLM decision replaces both the prune verdict and the
// confidence; the heuristic's verdict is kept in the result's Context.
func Blend(heuristic model.PruneDecision, llm *Decision, confidenceThreshold float64) model.PruneDecision {
	if llm == nil || llm.Confidence < confidenceThreshold {
		return heuristic
	}

	return model.PruneDecision{
		ProductID:  heuristic.ProductID,
		Prune:      llm.Prune,
		Confidence: llm.Confidence,
		Reason:     fmt.Sprintf("llm review: %s (heuristic was: %s)", llm.Reason, heuristic.Reason),
		Context: map[string]any{
			"heuristicPrune":      heuristic.Prune,
			"heuristicConfidence": heuristic.Confidence,
		},
	}
}

// IndexByProductID builds a lookup from a ReviewBatch result for use with
// Blend.
func IndexByProductID(decisions []Decision) map[string]*Decision {
	out := make(map[string]*Decision, len(decisions))
	for i := range decisions {
		out[decisions[i].ProductID] = &decisions[i]
	}
	return out
}
