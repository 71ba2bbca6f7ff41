// Package llmreview is the optional LLM batch reviewer of §4.5: a single
// prompt carrying the full cart, detected bundles, items under review, and
// items already decided keep, one make_prune_decision tool call per
// reviewed item. It is advisory only and is never in a control path beyond
// accept/reject advice on a pruning candidate.
package llmreview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 4096
	maxRetries       = 2
	retryBaseDelay   = 500 * time.Millisecond
)

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
}

// Client calls a configurable Anthropic-compatible messages endpoint to get
// per-item prune/keep advice.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     Logger
}

// New builds a Client. apiKey is expected to be session-only per §6 and is
// never logged.
func New(endpoint, apiKey string, logger Logger) *Client {
	model := DefaultModel
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

func (c *Client) logDebug(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Debugw(msg, kv...)
	}
}

func (c *Client) logWarn(msg string, kv ...any) {
	if c.logger != nil {
		c.logger.Warnw(msg, kv...)
	}
}

// CheckAvailable performs a minimal round trip to validate the configured
// endpoint and API key, backing the llm.checkAvailable protocol action.
func (c *Client) CheckAvailable(ctx context.Context) error {
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: 8,
		Messages:  []messageEntry{{Role: "user", Content: "ping"}},
	}
	_, err := c.send(ctx, req)
	return err
}

// ReviewBatch sends one BatchRequest prompt and returns one Decision per
// item in req.UnderReview that the model produced a tool call for. Items
// the model didn't address are simply absent from the result; callers fall
// back to the heuristic decision for those, per §4.5.
func (c *Client) ReviewBatch(ctx context.Context, req BatchRequest) ([]Decision, error) {
	if len(req.UnderReview) == 0 {
		return nil, nil
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, errors.Wrap(err, "build llm review prompt")
	}

	wire := messagesRequest{
		Model:     c.model,
		MaxTokens: DefaultMaxTokens,
		Tools:     []toolDef{makeDecisionTool()},
		ToolChoice: &toolChoiceDef{
			Type: "auto",
		},
		Messages: []messageEntry{{Role: "user", Content: prompt}},
	}

	respBody, err := c.send(ctx, wire)
	if err != nil {
		return nil, err
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "decode llm review response")
	}

	var decisions []Decision
	for _, block := range parsed.Content {
		if block.Type != "tool_use" || block.Name != makeDecisionToolName {
			continue
		}
		raw, err := json.Marshal(block.Input)
		if err != nil {
			c.logWarn("llmreview: failed to re-marshal tool input", "error", err)
			continue
		}
		var td toolDecision
		if err := json.Unmarshal(raw, &td); err != nil {
			c.logWarn("llmreview: malformed tool_use input", "error", err)
			continue
		}
		decisions = append(decisions, Decision{
			ProductID:  td.ProductID,
			Prune:      td.Prune,
			Confidence: td.Confidence,
			Reason:     td.Reason,
		})
	}

	return decisions, nil
}

func (c *Client) send(ctx context.Context, body any) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal llm request")
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			c.logDebug("llmreview: retrying", "attempt", attempt, "delay", delay.String())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, errors.Wrap(err, "build llm request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, "llm request transport error")
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = errors.Wrap(err, "read llm response body")
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		lastErr = fmt.Errorf("llm endpoint returned status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			continue
		}
		return nil, lastErr
	}

	return nil, errors.Wrapf(lastErr, "llm request failed after %d retries", maxRetries)
}
