package espn

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

// --- Mocks ---

type mockSession struct {
	json    map[string]string // URL substring -> raw JSON payload
	jsonErr map[string]error  // URL substring -> error
	html    string
	htmlErr error
	closed  int
	fetched []string
}

func (m *mockSession) FetchJSON(_ context.Context, url string, v any) error {
	m.fetched = append(m.fetched, url)
	for frag, err := range m.jsonErr {
		if strings.Contains(url, frag) {
			return err
		}
	}
	for frag, payload := range m.json {
		if strings.Contains(url, frag) {
			return json.Unmarshal([]byte(payload), v)
		}
	}
	return errors.New("unexpected url: " + url)
}

func (m *mockSession) FetchHTML(_ context.Context, url string) (*goquery.Document, error) {
	m.fetched = append(m.fetched, url)
	if m.htmlErr != nil {
		return nil, m.htmlErr
	}
	return goquery.NewDocumentFromReader(strings.NewReader(m.html))
}

func (m *mockSession) Close() { m.closed++ }

type mockFactory struct {
	sess       *mockSession
	acquireErr error
}

func (f *mockFactory) Acquire(_ context.Context) (Session, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.sess, nil
}

const twoEventScoreboard = `{"events":[
	{"id":"401","date":"2025-12-01T03:00Z","status":{"type":{"description":"Final"}},
	 "competitions":[{"competitors":[
		{"homeAway":"home","score":"112","team":{"displayName":"Golden State Warriors"}},
		{"homeAway":"away","score":"104","team":{"displayName":"Los Angeles Lakers"}}]}]},
	{"id":"402","date":"2025-12-01T01:00Z","status":{"type":{"description":"Final"}},
	 "competitions":[{"competitors":[
		{"homeAway":"home","score":"99","team":{"displayName":"Boston Celtics"}},
		{"homeAway":"away","score":"101","team":{"displayName":"Milwaukee Bucks"}}]}]}
]}`

func newTestRetriever(t *testing.T, sess *mockSession) *Retriever {
	t.Helper()
	clock := func() time.Time {
		return time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	}
	return New(&Config{Sessions: &mockFactory{sess: sess}}).WithClock(clock)
}

// --- Tests ---

func TestRetrieve_ScoreboardIntent(t *testing.T) {
	sess := &mockSession{json: map[string]string{"scoreboard?dates=20251201": twoEventScoreboard}}
	r := newTestRetriever(t, sess)

	res, err := r.Retrieve(context.Background(), "nba games today")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindScoreboard {
		t.Fatalf("want KindScoreboard, got %q", res.Kind)
	}
	if len(res.Events) != 2 {
		t.Fatalf("want 2 events, got %d", len(res.Events))
	}
	first := res.Events[0]
	if first.HomeTeam != "Golden State Warriors" || first.HomeScore != 112 {
		t.Errorf("home side mismapped: %+v", first)
	}
	if first.AwayTeam != "Los Angeles Lakers" || first.AwayScore != 104 {
		t.Errorf("away side mismapped: %+v", first)
	}
	if sess.closed != 1 {
		t.Errorf("session closed %d times, want 1", sess.closed)
	}
}

func TestRetrieve_YesterdayResolvesPriorDate(t *testing.T) {
	sess := &mockSession{json: map[string]string{"scoreboard?dates=20251130": `{"events":[]}`}}
	r := newTestRetriever(t, sess)

	res, err := r.Retrieve(context.Background(), "nba scoreboard yesterday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindScoreboard {
		t.Fatalf("want KindScoreboard, got %q", res.Kind)
	}
	if !strings.Contains(res.Text, "2025-11-30") {
		t.Errorf("wrong date in rendering: %q", res.Text)
	}
}

func TestRetrieve_SpecificGameIntent(t *testing.T) {
	sess := &mockSession{json: map[string]string{"scoreboard?dates=": twoEventScoreboard}}
	r := newTestRetriever(t, sess)

	res, err := r.Retrieve(context.Background(), "lakers vs warriors score")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindGameScore {
		t.Fatalf("want KindGameScore, got %q", res.Kind)
	}
	if len(res.Events) != 1 || res.Events[0].GameID != "401" {
		t.Fatalf("wrong event: %+v", res.Events)
	}
	if res.Events[0].HomeScore != 112 || res.Events[0].AwayScore != 104 {
		t.Errorf("scores not populated: %+v", res.Events[0])
	}
}

func TestRetrieve_SpecificGameFallsThroughWhenNoMatch(t *testing.T) {
	sess := &mockSession{
		json: map[string]string{"scoreboard?dates=": twoEventScoreboard},
		html: "<html><body>no scores here</body></html>",
	}
	r := newTestRetriever(t, sess)

	// Two teams mentioned, but they played in different games.
	res, err := r.Retrieve(context.Background(), "lakers vs celtics score")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindNotFound {
		t.Fatalf("want KindNotFound after fall-through, got %q", res.Kind)
	}
	if !strings.Contains(res.Text, "lakers vs celtics score") {
		t.Errorf("not-found result should echo the query: %q", res.Text)
	}
	if sess.closed != 1 {
		t.Errorf("session closed %d times, want 1", sess.closed)
	}
}

func TestRetrieve_PlayerStatIntent(t *testing.T) {
	boxscore := `{"boxscore":{"players":[
		{"team":{"displayName":"Los Angeles Lakers"},"statistics":[
			{"labels":["MIN","PTS","REB","AST","STL"],
			 "athletes":[
				{"athlete":{"displayName":"Austin Reaves"},"stats":["30","15","4","6","1"]},
				{"athlete":{"displayName":"LeBron James"},"stats":["36","28","8","11","2"]}
			]}
		]}
	]}}`
	sess := &mockSession{json: map[string]string{
		"scoreboard?dates=": twoEventScoreboard,
		"summary?event=401": boxscore,
	}}
	r := newTestRetriever(t, sess)

	res, err := r.Retrieve(context.Background(), "how did lebron play")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindPlayerStats {
		t.Fatalf("want KindPlayerStats, got %q", res.Kind)
	}
	rec := res.Stats
	if rec == nil {
		t.Fatal("missing stat record")
	}
	if rec.Player != "LeBron James" || rec.Team != "Los Angeles Lakers" || rec.GameID != "401" {
		t.Errorf("wrong record identity: %+v", rec)
	}
	if len(rec.Stats) != 5 {
		t.Fatalf("want 5 stat entries, got %d", len(rec.Stats))
	}
	if rec.Stats["PTS"] != "28" {
		t.Errorf("stat misaligned: %+v", rec.Stats)
	}
	if rec.Degraded {
		t.Error("record wrongly marked degraded")
	}
}

func TestRetrieve_PlayerStatScansNextEventOnFetchFailure(t *testing.T) {
	boxscore := `{"boxscore":{"players":[
		{"team":{"displayName":"Boston Celtics"},"statistics":[
			{"labels":["PTS"],"athletes":[{"athlete":{"displayName":"Jayson Tatum"},"stats":["31"]}]}
		]}
	]}}`
	sess := &mockSession{
		json: map[string]string{
			"scoreboard?dates=": twoEventScoreboard,
			"summary?event=402": boxscore,
		},
		jsonErr: map[string]error{"summary?event=401": errors.New("timeout")},
	}
	r := newTestRetriever(t, sess)

	res, err := r.Retrieve(context.Background(), "tatum stat line")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindPlayerStats {
		t.Fatalf("want KindPlayerStats, got %q", res.Kind)
	}
	if res.Stats.Player != "Jayson Tatum" {
		t.Errorf("wrong player: %+v", res.Stats)
	}
}

func TestZipStats_MismatchedLengthsTruncate(t *testing.T) {
	rec := zipStats([]string{"MIN", "PTS", "REB", "AST", "STL"}, []string{"30", "22", "7"})

	if !rec.Degraded {
		t.Error("mismatch must mark the record degraded")
	}
	if len(rec.Stats) != 3 {
		t.Fatalf("want 3 entries after truncation, got %d", len(rec.Stats))
	}
	if rec.Stats["REB"] != "7" {
		t.Errorf("positional pairing broken: %+v", rec.Stats)
	}
	if _, ok := rec.Stats["AST"]; ok {
		t.Error("truncated label must not appear")
	}
}

func TestRetrieve_ScrapeFallbackWhenAPIDown(t *testing.T) {
	sess := &mockSession{
		jsonErr: map[string]error{"scoreboard?dates=": errors.New("connection refused")},
		html: `<html><body><div>
			Lakers 104 - 112 Warriors Final
			Bucks 101 - 99 Celtics Final/OT
		</div></body></html>`,
	}
	r := newTestRetriever(t, sess)

	res, err := r.Retrieve(context.Background(), "lakers vs warriors score")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domain.KindScraped {
		t.Fatalf("want KindScraped, got %q", res.Kind)
	}
	if len(res.Events) != 2 {
		t.Fatalf("want 2 scraped events, got %d: %+v", len(res.Events), res.Events)
	}
	ev := res.Events[0]
	if !ev.Scraped {
		t.Error("scraped events must be tagged as such")
	}
	if ev.AwayTeam != "Lakers" || ev.AwayScore != 104 || ev.HomeTeam != "Warriors" || ev.HomeScore != 112 {
		t.Errorf("scrape mismapped: %+v", ev)
	}
	if sess.closed != 1 {
		t.Errorf("session closed %d times, want 1", sess.closed)
	}
}

func TestRetrieve_EverythingFailsReturnsNotFound(t *testing.T) {
	sess := &mockSession{
		jsonErr: map[string]error{"scoreboard?dates=": errors.New("timeout")},
		htmlErr: errors.New("timeout"),
	}
	r := newTestRetriever(t, sess)

	res, err := r.Retrieve(context.Background(), "lakers score")
	if err != nil {
		t.Fatalf("failures must degrade, not error: %v", err)
	}
	if res.Kind != domain.KindNotFound {
		t.Fatalf("want KindNotFound, got %q", res.Kind)
	}
	if sess.closed != 1 {
		t.Errorf("session closed %d times, want 1", sess.closed)
	}
}

func TestRetrieve_SessionAcquisitionFailure(t *testing.T) {
	r := New(&Config{Sessions: &mockFactory{acquireErr: errors.New("browser binding missing")}})

	_, err := r.Retrieve(context.Background(), "nba games today")
	if !errors.Is(err, domain.ErrSessionUnavailable) {
		t.Fatalf("want ErrSessionUnavailable, got %v", err)
	}
}
