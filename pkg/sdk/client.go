package scout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client is the scout API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("scout: base URL required")
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		userAgent:  cfg.userAgent,
	}, nil
}

// Link is a source reference attached to an answer.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Thinking is the pipeline trace attached to an answer.
type Thinking struct {
	Understood   string   `json:"understood"`
	SearchQuery  string   `json:"search_query,omitempty"`
	ResultsCount int      `json:"results_count"`
	Sources      []string `json:"sources,omitempty"`
	DataKind     string   `json:"data_kind,omitempty"`
}

// ChatResponse is the answer to one chat message. Answer is the assembled
// text; the turn fields mirror it with role and timestamp attached.
type ChatResponse struct {
	Success   bool      `json:"success"`
	Answer    string    `json:"answer"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Links     []Link    `json:"links,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Thinking  Thinking  `json:"thinking"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Chat sends one message and returns the assembled answer. Requires the
// server's json response mode.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("scout: %w", ErrEmptyMessage)
	}

	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("scout: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scout: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scout: chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("scout: decode response: %w", err)
	}
	return &out, nil
}

// Health checks service readiness.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("scout: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scout: health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scout: unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// decodeError maps an API error body to a sentinel where one applies.
func decodeError(resp *http.Response) error {
	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
		return fmt.Errorf("scout: unexpected status %d", resp.StatusCode)
	}

	sentinels := map[string]error{
		"validation_failed":         ErrEmptyMessage,
		"rate_limited":              ErrRateLimited,
		"completion_provider_error": ErrCompletionProvider,
		"retrieval_provider_error":  ErrSearchProvider,
	}
	if sentinel, ok := sentinels[apiErr.Code]; ok {
		return fmt.Errorf("scout: %s: %w", apiErr.Message, sentinel)
	}
	return fmt.Errorf("scout: %s (%s, status %d)", apiErr.Message, apiErr.Code, resp.StatusCode)
}
