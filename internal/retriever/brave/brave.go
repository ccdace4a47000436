// Package brave implements the search-backed retrieval strategy over a
// Brave-style web search API.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
	"github.com/nikhildd32/cf-ai-scout/internal/metrics"
)

const (
	defaultBaseURL     = "https://api.search.brave.com/res/v1/web/search"
	defaultResultCount = 10
	defaultTimeout     = 15 * time.Second

	strategy = "search"
)

// Retriever calls the web search provider with an optimized query and
// renders the results as concatenated text blocks for the language model.
type Retriever struct {
	client  *http.Client
	apiKey  string
	baseURL string
	count   int
	logger  *zap.Logger
}

// Config holds the search provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	ResultCount int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// New creates a search-backed Retriever.
func New(cfg *Config) *Retriever {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	count := cfg.ResultCount
	if count <= 0 {
		count = defaultResultCount
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		client:  &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		count:   count,
		logger:  logger,
	}
}

type searchResponse struct {
	Web struct {
		Results []searchItem `json:"results"`
	} `json:"web"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type searchItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Snippet     string `json:"snippet"`
}

// Retrieve runs one search. Empty or placeholder queries and a missing
// credential fail fast without any outbound call. Zero results is a distinct
// non-error condition so a fallback strategy can take over.
func (r *Retriever) Retrieve(ctx context.Context, query string) (domain.RawResult, error) {
	if isPlaceholder(query) {
		return domain.RawResult{}, fmt.Errorf(
			"a specific sports question is needed, like \"NBA games yesterday\" or \"NFL stats today\": %w",
			domain.ErrEmptyQuery)
	}
	if r.apiKey == "" {
		return domain.RawResult{}, fmt.Errorf("search API key is not configured: %w", domain.ErrMissingCredential)
	}

	reqURL := r.baseURL + "?q=" + url.QueryEscape(query) + "&count=" + strconv.Itoa(r.count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.RawResult{}, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", r.apiKey)

	start := time.Now()
	resp, err := r.client.Do(req)
	metrics.RetrievalRequestDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "error").Inc()
		return domain.RawResult{}, fmt.Errorf("unable to fetch search data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "rate_limited").Inc()
		return domain.RawResult{}, fmt.Errorf(
			"search quota exhausted (free tier allows 2,000 queries/month), try again later: %w",
			domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "error").Inc()
		return domain.RawResult{}, fmt.Errorf("search API returned status %d: %w",
			resp.StatusCode, domain.ErrSearchProvider)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "error").Inc()
		return domain.RawResult{}, fmt.Errorf("decode search response: %v: %w", err, domain.ErrSearchProvider)
	}
	if data.Error != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "error").Inc()
		return domain.RawResult{}, fmt.Errorf("search API error: %s: %w",
			data.Error.Message, domain.ErrSearchProvider)
	}

	metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "success").Inc()

	results := data.Web.Results
	if len(results) == 0 {
		metrics.RetrievalResultsTotal.WithLabelValues(strategy, string(domain.KindNotFound)).Inc()
		return domain.RawResult{
			Kind: domain.KindNotFound,
			Text: "No relevant results found. Try rephrasing the query or check for current season data.",
		}, nil
	}
	if len(results) > r.count {
		results = results[:r.count]
	}

	r.logger.Debug("search results received",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)
	metrics.RetrievalResultsTotal.WithLabelValues(strategy, string(domain.KindSearch)).Inc()

	var sb strings.Builder
	sources := make([]string, 0, len(results))
	for _, item := range results {
		description := item.Description
		if description == "" {
			description = item.Snippet
		}
		fmt.Fprintf(&sb, "Title: %s\nDescription: %s\nSource: %s\nURL: %s\n\n",
			item.Title, description, item.URL, item.URL)
		sources = append(sources, item.URL)
	}

	return domain.RawResult{
		Kind:    domain.KindSearch,
		Text:    strings.TrimSpace(sb.String()),
		Sources: sources,
	}, nil
}

// isPlaceholder reports whether the query is empty or one of the literal
// junk values models sometimes emit for missing arguments.
func isPlaceholder(query string) bool {
	trimmed := strings.TrimSpace(query)
	return trimmed == "" || trimmed == "null" || trimmed == "undefined"
}
