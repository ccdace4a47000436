package scout

import "github.com/nikhildd32/cf-ai-scout/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyMessage       = domain.ErrEmptyMessage
	ErrRateLimited        = domain.ErrRateLimited
	ErrCompletionProvider = domain.ErrCompletionProvider
	ErrSearchProvider     = domain.ErrSearchProvider
	ErrSessionUnavailable = domain.ErrSessionUnavailable
)
