// Package openai wraps the OpenAI-compatible chat completion API behind the
// orchestrator's Completer contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
	"github.com/nikhildd32/cf-ai-scout/internal/metrics"
)

// Completer is a chat completion provider using the OpenAI-compatible API
// (e.g. Workers AI, OpenRouter, or OpenAI itself).
type Completer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the completion provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// Complete runs one non-streaming completion round with optional tools.
func (c *Completer) Complete(
	ctx context.Context, msgs []domain.Message, tools []domain.ToolSpec,
) (domain.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toWireMessages(msgs),
		Tools:    toWireTools(tools),
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		metrics.CompletionErrorsTotal.WithLabelValues(c.model, "api_error").Inc()
		return domain.Message{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		metrics.CompletionErrorsTotal.WithLabelValues(c.model, "empty_response").Inc()
		return domain.Message{}, fmt.Errorf("empty completion response: %w", domain.ErrCompletionProvider)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.CompletionTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return fromWireMessage(resp.Choices[0].Message), nil
}

// Stream runs one streaming completion round, invoking onDelta for each text
// chunk as it arrives, and returns the full concatenated text.
func (c *Completer) Stream(
	ctx context.Context, msgs []domain.Message, onDelta func(string) error,
) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toWireMessages(msgs),
		Stream:   true,
	}

	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
		metrics.CompletionErrorsTotal.WithLabelValues(c.model, "api_error").Inc()
		return "", parseAPIError(err)
	}
	defer stream.Close()

	var full []byte
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.CompletionRequestsTotal.WithLabelValues(c.model, "error").Inc()
			metrics.CompletionErrorsTotal.WithLabelValues(c.model, "stream_error").Inc()
			return string(full), parseAPIError(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full = append(full, delta...)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return string(full), fmt.Errorf("deliver delta: %w", err)
			}
		}
	}

	metrics.CompletionRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())
	return string(full), nil
}

// --- Wire conversion ---

func toWireMessages(msgs []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		wire := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

func toWireTools(tools []domain.ToolSpec) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func fromWireMessage(m openai.ChatCompletionMessage) domain.Message {
	out := domain.Message{
		Role:    m.Role,
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrCompletionProvider for correct
// upstream status mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrCompletionProvider

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return fmt.Errorf("completion API rate limited: %s: %w", apiErr.Message, domain.ErrRateLimited)
		}
		return fmt.Errorf("completion API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion request failed with status %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	return fmt.Errorf("completion request failed: %v: %w", err, wrap)
}
