package llmreview

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

func TestBlend_LowConfidenceLLMFallsBackToHeuristic(t *testing.T) {
	heuristic := model.PruneDecision{ProductID: "p1", Prune: false, Confidence: 0.4, Reason: "heuristic says keep"}
	llm := &Decision{ProductID: "p1", Prune: true, Confidence: 0.3, Reason: "model thinks prune"}

	out := Blend(heuristic, llm, 0.6)
	require.Equal(t, heuristic, out)
}

func TestBlend_HighConfidenceLLMWins(t *testing.T) {
	heuristic := model.PruneDecision{ProductID: "p1", Prune: false, Confidence: 0.4, Reason: "heuristic says keep"}
	llm := &Decision{ProductID: "p1", Prune: true, Confidence: 0.9, Reason: "bundle pattern suggests reorder"}

	out := Blend(heuristic, llm, 0.6)
	require.True(t, out.Prune)
	require.Equal(t, 0.9, out.Confidence)
	require.Contains(t, out.Reason, "llm review")
}

func TestBlend_NilLLMDecisionFallsBackToHeuristic(t *testing.T) {
	heuristic := model.PruneDecision{ProductID: "p1", Prune: true, Confidence: 0.8}
	out := Blend(heuristic, nil, 0.6)
	require.Equal(t, heuristic, out)
}

func TestBuildPrompt_IncludesItemsUnderReview(t *testing.T) {
	prompt, err := buildPrompt(BatchRequest{
		CartProductIDs: []string{"p1", "p2"},
		UnderReview:    []ItemContext{{ProductID: "p1", Name: "Skip"}},
		AlreadyKept:    []string{"p2"},
	})
	require.NoError(t, err)
	require.Contains(t, prompt, "make_prune_decision")
	require.Contains(t, prompt, "Skip")
}

func TestIndexByProductID(t *testing.T) {
	idx := IndexByProductID([]Decision{{ProductID: "a"}, {ProductID: "b"}})
	require.Len(t, idx, 2)
	require.Equal(t, "a", idx["a"].ProductID)
}
