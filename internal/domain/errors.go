package domain

import "errors"

var (
	// ErrEmptyMessage signals a request without a usable message.
	ErrEmptyMessage = errors.New("message is required")
	// ErrEmptyQuery signals an empty or placeholder retrieval query.
	ErrEmptyQuery = errors.New("query is required")
	// ErrMissingCredential signals a missing provider credential.
	ErrMissingCredential = errors.New("provider credential missing")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrSearchProvider signals a search provider failure.
	ErrSearchProvider = errors.New("search provider error")
	// ErrSessionUnavailable signals a failed browse session acquisition.
	ErrSessionUnavailable = errors.New("browse session unavailable")
	// ErrCompletionProvider signals a language model provider failure.
	ErrCompletionProvider = errors.New("completion provider error")
)
