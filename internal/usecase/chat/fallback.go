package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

// Fallback composes two retrieval strategies behind the Retriever interface:
// the secondary runs when the primary errors or finds nothing.
type Fallback struct {
	primary   Retriever
	secondary Retriever
	logger    *zap.Logger
}

// NewFallback creates the composite. A nil secondary degenerates to the
// primary alone.
func NewFallback(primary, secondary Retriever, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Retrieve implements Retriever.
func (f *Fallback) Retrieve(ctx context.Context, query string) (domain.RawResult, error) {
	res, err := f.primary.Retrieve(ctx, query)
	if err == nil && res.Kind != domain.KindNotFound {
		return res, nil
	}
	if f.secondary == nil {
		return res, err
	}

	if err != nil {
		f.logger.Warn("primary retrieval failed, trying fallback", zap.Error(err))
	} else {
		f.logger.Debug("primary retrieval found nothing, trying fallback",
			zap.String("query", query))
	}
	return f.secondary.Retrieve(ctx, query)
}
