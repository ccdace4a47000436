package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

func TestFallback_PrimarySuccessSkipsSecondary(t *testing.T) {
	primary := &mockRetriever{result: domain.RawResult{Kind: domain.KindSearch, Text: "hit"}}
	secondary := &mockRetriever{}
	f := NewFallback(primary, secondary, nil)

	res, err := f.Retrieve(context.Background(), "lakers score NBA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "hit" {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(secondary.queries) != 0 {
		t.Error("secondary must not run when the primary succeeds")
	}
}

func TestFallback_PrimaryErrorRunsSecondary(t *testing.T) {
	primary := &mockRetriever{err: domain.ErrSearchProvider}
	secondary := &mockRetriever{result: domain.RawResult{Kind: domain.KindScoreboard, Text: "scoreboard"}}
	f := NewFallback(primary, secondary, nil)

	res, err := f.Retrieve(context.Background(), "NBA games today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindScoreboard {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(secondary.queries) != 1 {
		t.Errorf("want 1 secondary call, got %d", len(secondary.queries))
	}
}

func TestFallback_NotFoundRunsSecondary(t *testing.T) {
	primary := &mockRetriever{result: domain.RawResult{Kind: domain.KindNotFound, Text: "nothing"}}
	secondary := &mockRetriever{result: domain.RawResult{Kind: domain.KindScraped, Text: "scraped"}}
	f := NewFallback(primary, secondary, nil)

	res, err := f.Retrieve(context.Background(), "obscure game")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindScraped {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestFallback_NilSecondaryPassesThrough(t *testing.T) {
	wantErr := errors.New("primary down")
	primary := &mockRetriever{err: wantErr}
	f := NewFallback(primary, nil, nil)

	if _, err := f.Retrieve(context.Background(), "NBA games today"); !errors.Is(err, wantErr) {
		t.Fatalf("want primary error, got %v", err)
	}
}

func TestFallback_BothFailReturnsSecondaryError(t *testing.T) {
	primary := &mockRetriever{err: domain.ErrRateLimited}
	secondary := &mockRetriever{err: domain.ErrSessionUnavailable}
	f := NewFallback(primary, secondary, nil)

	if _, err := f.Retrieve(context.Background(), "NBA games today"); !errors.Is(err, domain.ErrSessionUnavailable) {
		t.Fatalf("want secondary error, got %v", err)
	}
}
