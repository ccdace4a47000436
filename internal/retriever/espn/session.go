package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

// Session is one request-scoped browse session against the sports data
// provider. Close releases the session and must be called on every exit path.
type Session interface {
	FetchJSON(ctx context.Context, url string, v any) error
	FetchHTML(ctx context.Context, url string) (*goquery.Document, error)
	Close()
}

// SessionFactory acquires a fresh Session per retrieval.
type SessionFactory interface {
	Acquire(ctx context.Context) (Session, error)
}

// HTTPSessionFactory produces sessions backed by a plain HTTP client with a
// bounded per-navigation timeout.
type HTTPSessionFactory struct {
	timeout time.Duration
}

// NewHTTPSessionFactory creates a factory. Timeout bounds each navigation;
// zero means 15s.
func NewHTTPSessionFactory(timeout time.Duration) *HTTPSessionFactory {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSessionFactory{timeout: timeout}
}

// Acquire implements SessionFactory.
func (f *HTTPSessionFactory) Acquire(_ context.Context) (Session, error) {
	return &httpSession{client: &http.Client{Timeout: f.timeout}}, nil
}

type httpSession struct {
	client *http.Client
}

func (s *httpSession) FetchJSON(ctx context.Context, url string, v any) error {
	resp, err := s.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (s *httpSession) FetchHTML(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := s.get(ctx, url, "text/html,application/xhtml+xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

func (s *httpSession) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "cf-ai-scout/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, domain.ErrSearchProvider)
	}
	return resp, nil
}

func (s *httpSession) Close() {
	s.client.CloseIdleConnections()
}
