package chat

import (
	"context"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

// Completer is the language model contract.
type Completer interface {
	// Complete runs one non-streaming round with optional tools.
	Complete(ctx context.Context, msgs []domain.Message, tools []domain.ToolSpec) (domain.Message, error)
	// Stream runs one streaming round, invoking onDelta per text chunk, and
	// returns the full text.
	Stream(ctx context.Context, msgs []domain.Message, onDelta func(string) error) (string, error)
}

// Retriever fetches live sports information for an optimized query. The
// orchestrator never branches on which strategy implements it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (domain.RawResult, error)
}
