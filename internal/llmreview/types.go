package llmreview

// ItemContext is one cart item's summary as handed to the LLM batch
// reviewer, per §4.5: rich per-item stats for items under review.
type ItemContext struct {
	ProductID      string  `json:"productId"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	CadenceDays    float64 `json:"cadenceDays"`
	DaysSinceLast  float64 `json:"daysSinceLastPurchase"`
	UrgencyRatio   float64 `json:"urgencyRatio"`
	HeuristicPrune bool    `json:"heuristicPrune"`
	HeuristicConf  float64 `json:"heuristicConfidence"`
}

// Bundle mirrors internal/analytics.Bundle without importing it, keeping
// this package's wire contract independent of the analytics engine's
// internals.
type Bundle struct {
	Products []string `json:"products"`
}

// BatchRequest is the single prompt described in §4.5: the full cart,
// detected bundles, items under review, and items already decided keep.
type BatchRequest struct {
	CartProductIDs []string      `json:"cartProductIds"`
	Bundles        []Bundle      `json:"bundles"`
	UnderReview    []ItemContext `json:"underReview"`
	AlreadyKept    []string      `json:"alreadyKept"`
}

// toolDecision is one make_prune_decision tool call as the messages API
// returns it.
type toolDecision struct {
	ProductID  string  `json:"productId"`
	Prune      bool    `json:"prune"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Decision is one reviewed item's LLM verdict.
type Decision struct {
	ProductID  string
	Prune      bool
	Confidence float64
	Reason     string
}

// messagesRequest is the Anthropic-compatible messages API request body.
type messagesRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Tools     []toolDef       `json:"tools"`
	Messages  []messageEntry  `json:"messages"`
	ToolChoice *toolChoiceDef `json:"tool_choice,omitempty"`
}

type toolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoiceDef struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type messageEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the subset of the response shape this client reads:
// a sequence of content blocks, each either text or a tool_use call.
type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type  string         `json:"type"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

const makeDecisionToolName = "make_prune_decision"

func makeDecisionTool() toolDef {
	return toolDef{
		Name:        makeDecisionToolName,
		Description: "Record a prune/keep decision for one reviewed cart item.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"productId":  map[string]any{"type": "string"},
				"prune":      map[string]any{"type": "boolean"},
				"confidence": map[string]any{"type": "number"},
				"reason":     map[string]any{"type": "string"},
			},
			"required": []string{"productId", "prune", "confidence", "reason"},
		},
	}
}
