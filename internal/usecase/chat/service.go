// Package chat orchestrates one stateless question-answer turn: classify,
// optimize, retrieve, complete, assemble. Every request is answerable from
// its own body alone; nothing is retained between calls.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nikhildd32/cf-ai-scout/internal/assemble"
	"github.com/nikhildd32/cf-ai-scout/internal/classify"
	"github.com/nikhildd32/cf-ai-scout/internal/domain"
	"github.com/nikhildd32/cf-ai-scout/internal/queryopt"
)

// maxToolRounds bounds how many tool-call cycles a single request may run.
const maxToolRounds = 3

// Service wires the pipeline around the language model's tool loop.
type Service struct {
	completer Completer
	retriever Retriever
	optimizer *queryopt.Optimizer
	logger    *zap.Logger
}

// New creates a chat service.
func New(completer Completer, retriever Retriever, optimizer *queryopt.Optimizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		completer: completer,
		retriever: retriever,
		optimizer: optimizer,
		logger:    logger,
	}
}

// Thinking is the pipeline trace exposed alongside an answer.
type Thinking struct {
	Understood   string            `json:"understood"`
	SearchQuery  string            `json:"search_query,omitempty"`
	ResultsCount int               `json:"results_count"`
	Sources      []string          `json:"sources,omitempty"`
	DataKind     domain.ResultKind `json:"data_kind,omitempty"`
}

// Answer is the assembled result of one turn.
type Answer struct {
	Text     string
	Links    []domain.Link
	Thinking Thinking
	Result   domain.RawResult
}

// Ask runs a full turn and returns the assembled answer with links and the
// pipeline trace. Used by the JSON response variant.
func (s *Service) Ask(ctx context.Context, message string) (Answer, error) {
	if strings.TrimSpace(message) == "" {
		return Answer{}, domain.ErrEmptyMessage
	}

	msgs := []domain.Message{
		{Role: domain.MessageRoleSystem, Content: systemPrompt},
		{Role: domain.MessageRoleUser, Content: message},
	}

	resp, last, searchQuery, err := s.toolLoop(ctx, msgs)
	if err != nil {
		return Answer{}, err
	}

	display, links := assemble.Assemble(resp.Content, last.Sources)

	return Answer{
		Text:  display,
		Links: links,
		Thinking: Thinking{
			Understood:   message,
			SearchQuery:  searchQuery,
			ResultsCount: resultCount(last),
			Sources:      sourceHosts(last.Sources),
			DataKind:     last.Kind,
		},
		Result: last,
	}, nil
}

// AskStream runs a full turn and delivers the answer as raw text deltas.
// Tool rounds execute non-streaming first; only the final answer streams.
// No link extraction happens in this variant.
func (s *Service) AskStream(ctx context.Context, message string, onDelta func(string) error) error {
	if strings.TrimSpace(message) == "" {
		return domain.ErrEmptyMessage
	}

	msgs := []domain.Message{
		{Role: domain.MessageRoleSystem, Content: systemPrompt},
		{Role: domain.MessageRoleUser, Content: message},
	}

	resp, err := s.completer.Complete(ctx, msgs, toolSpecs())
	if err != nil {
		return err
	}

	if len(resp.ToolCalls) == 0 {
		// The model answered directly; deliver it as a single chunk.
		return onDelta(resp.Content)
	}

	msgs = append(msgs, resp)
	for _, tc := range resp.ToolCalls {
		content, _, _ := s.executeTool(ctx, tc)
		msgs = append(msgs, domain.Message{
			Role:       domain.MessageRoleTool,
			Content:    content,
			ToolCallID: tc.ID,
		})
	}

	_, err = s.completer.Stream(ctx, msgs, onDelta)
	return err
}

// toolLoop alternates completion rounds and tool executions until the model
// stops calling tools or the round budget runs out.
func (s *Service) toolLoop(
	ctx context.Context, msgs []domain.Message,
) (domain.Message, domain.RawResult, string, error) {
	var last domain.RawResult
	var searchQuery string

	resp, err := s.completer.Complete(ctx, msgs, toolSpecs())
	if err != nil {
		return domain.Message{}, last, "", err
	}

	for round := 0; round < maxToolRounds && len(resp.ToolCalls) > 0; round++ {
		msgs = append(msgs, resp)
		for _, tc := range resp.ToolCalls {
			content, res, q := s.executeTool(ctx, tc)
			if res != nil {
				last = *res
				searchQuery = q
			}
			msgs = append(msgs, domain.Message{
				Role:       domain.MessageRoleTool,
				Content:    content,
				ToolCallID: tc.ID,
			})
		}

		resp, err = s.completer.Complete(ctx, msgs, toolSpecs())
		if err != nil {
			return domain.Message{}, last, searchQuery, err
		}
	}

	return resp, last, searchQuery, nil
}

// toolArgs is the single accepted argument shape for the search tool.
type toolArgs struct {
	Query string `json:"query"`
}

// executeTool runs one tool call. Every failure is converted to a
// descriptive string handed back to the model as tool output, so the model
// can compose a graceful reply instead of the request aborting.
func (s *Service) executeTool(ctx context.Context, tc domain.ToolCall) (string, *domain.RawResult, string) {
	if tc.Name != toolName {
		return fmt.Sprintf("Unknown tool %q. Only %q is available.", tc.Name, toolName), nil, ""
	}

	args, err := decodeToolArgs(tc.Arguments)
	if err != nil {
		s.logger.Warn("invalid tool arguments", zap.String("raw", tc.Arguments), zap.Error(err))
		return fmt.Sprintf("Invalid tool arguments: %v", err), nil, ""
	}

	sport := classify.Sport(args.Query)
	q := s.optimizer.Optimize(args.Query, sport)

	s.logger.Info("retrieving",
		zap.String("sport", string(q.Sport)),
		zap.String("query", q.Optimized),
	)

	res, err := s.retriever.Retrieve(ctx, q.Optimized)
	if err != nil {
		s.logger.Warn("retrieval failed", zap.Error(err))
		return fmt.Sprintf("Unable to fetch live data: %v", err), nil, q.Optimized
	}
	return res.Text, &res, q.Optimized
}

// decodeToolArgs decodes strictly: a JSON object with exactly the required
// "query" field. Alternate shapes the model might emit (bare strings,
// "text"/"input" keys) are rejected, not probed.
func decodeToolArgs(raw string) (toolArgs, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var args toolArgs
	if err := dec.Decode(&args); err != nil {
		return args, fmt.Errorf("expected a JSON object with a single required \"query\" string field: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return args, fmt.Errorf("\"query\" must be a non-empty string: %w", domain.ErrEmptyQuery)
	}
	return args, nil
}

func resultCount(res domain.RawResult) int {
	switch {
	case len(res.Events) > 0:
		return len(res.Events)
	case res.Stats != nil:
		return 1
	case res.Kind == domain.KindSearch:
		return len(res.Sources)
	default:
		return 0
	}
}

// sourceHosts reduces source URLs to unique hostnames, preserving order.
func sourceHosts(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var hosts []string
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}
