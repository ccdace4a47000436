// Package espn implements the browse-backed retrieval strategy: structured
// scoreboard and boxscore JSON endpoints first, an HTML scrape of the
// scoreboard page as a last resort.
package espn

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
	"github.com/nikhildd32/cf-ai-scout/internal/metrics"
)

const (
	defaultAPIBase = "https://site.api.espn.com/apis/site/v2/sports/basketball/nba"
	defaultSiteURL = "https://www.espn.com/nba/scoreboard"

	strategy = "scoreboard"
)

// nbaTeams are the nicknames recognized in queries, matched against the
// provider's display names by case-insensitive containment.
var nbaTeams = []string{
	"lakers", "celtics", "warriors", "bulls", "heat", "nets", "knicks",
	"bucks", "76ers", "raptors", "cavaliers", "pistons", "pacers", "hawks",
	"hornets", "wizards", "magic", "grizzlies", "pelicans", "spurs",
	"mavericks", "thunder", "trail blazers", "jazz", "nuggets",
	"timberwolves", "kings", "clippers", "suns", "rockets",
}

// knownPlayers are distinctive name fragments for the player-stat intent.
var knownPlayers = []string{
	"lebron", "curry", "giannis", "doncic", "jokic", "tatum", "durant",
	"embiid", "wembanyama", "booker", "brunson", "gilgeous-alexander",
}

var scoreboardWords = []string{"scoreboard", "games", "today", "yesterday"}

// scrapeLineRe matches "TEAM SCORE - TEAM SCORE STATUS" lines in the
// scoreboard page text.
var scrapeLineRe = regexp.MustCompile(
	`([A-Z][A-Za-z .'&]+?)\s+(\d{1,3})\s*-\s*(\d{1,3})\s+([A-Z][A-Za-z .'&]+?)\s+(Final(?:/OT)?|Halftime|End of \d\w{2}|\d{1,2}:\d{2} [A-Z]{2})`)

// Retriever answers scoreboard, game-score, and player-stat intents directly
// from structured endpoints, scraping as a fallback.
type Retriever struct {
	sessions SessionFactory
	apiBase  string
	siteURL  string
	now      func() time.Time
	logger   *zap.Logger
}

// Config holds the browse-backed retriever settings.
type Config struct {
	Sessions SessionFactory
	APIBase  string
	SiteURL  string
	Logger   *zap.Logger
}

// New creates a browse-backed Retriever.
func New(cfg *Config) *Retriever {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	siteURL := cfg.SiteURL
	if siteURL == "" {
		siteURL = defaultSiteURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		sessions: cfg.Sessions,
		apiBase:  apiBase,
		siteURL:  siteURL,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the clock used for date resolution.
func (r *Retriever) WithClock(now func() time.Time) *Retriever {
	r.now = now
	return r
}

// Retrieve dispatches the query to the first matching intent: scoreboard,
// specific game, player stats, HTML scrape, then a distinct not-found
// result. The session is released on every exit path. All fetch and parse
// failures degrade to the next step or to a descriptive result; the only
// error returned is a failed session acquisition.
func (r *Retriever) Retrieve(ctx context.Context, query string) (domain.RawResult, error) {
	sess, err := r.sessions.Acquire(ctx)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "error").Inc()
		return domain.RawResult{}, fmt.Errorf("acquire browse session: %w", domain.ErrSessionUnavailable)
	}
	defer sess.Close()

	start := time.Now()
	res := r.dispatch(ctx, sess, query)
	metrics.RetrievalRequestDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	metrics.RetrievalRequestsTotal.WithLabelValues(strategy, "success").Inc()
	metrics.RetrievalResultsTotal.WithLabelValues(strategy, string(res.Kind)).Inc()
	return res, nil
}

func (r *Retriever) dispatch(ctx context.Context, sess Session, query string) domain.RawResult {
	lower := strings.ToLower(query)

	date := r.now().UTC()
	if strings.Contains(lower, "yesterday") {
		date = date.AddDate(0, 0, -1)
	}

	scoreboardURL := fmt.Sprintf("%s/scoreboard?dates=%s", r.apiBase, date.Format("20060102"))
	events, evErr := r.fetchScoreboard(ctx, sess, scoreboardURL)
	if evErr != nil {
		r.logger.Warn("scoreboard fetch failed", zap.String("url", scoreboardURL), zap.Error(evErr))
	}

	if evErr == nil {
		if containsAny(lower, scoreboardWords) {
			return domain.RawResult{
				Kind:    domain.KindScoreboard,
				Text:    renderScoreboard(date, events),
				Events:  events,
				Sources: []string{scoreboardURL},
			}
		}

		if teams := mentionedTeams(lower); len(teams) >= 2 {
			if ev, ok := findGame(events, teams); ok {
				return domain.RawResult{
					Kind:    domain.KindGameScore,
					Text:    renderGame(ev),
					Events:  []domain.StructuredEvent{ev},
					Sources: []string{scoreboardURL},
				}
			}
		}

		if players := mentionedPlayers(lower); len(players) == 1 {
			if rec, src, ok := r.playerStats(ctx, sess, events, players[0]); ok {
				return domain.RawResult{
					Kind:    domain.KindPlayerStats,
					Text:    renderStats(rec),
					Stats:   rec,
					Sources: []string{src},
				}
			}
		}
	}

	if scraped := r.scrape(ctx, sess); len(scraped) > 0 {
		return domain.RawResult{
			Kind:    domain.KindScraped,
			Text:    renderScraped(scraped),
			Events:  scraped,
			Sources: []string{r.siteURL},
		}
	}

	return domain.RawResult{
		Kind: domain.KindNotFound,
		Text: fmt.Sprintf("No live NBA data found for %q. The answer may need a web search instead.", query),
	}
}

// --- Structured endpoints ---

type scoreboardResponse struct {
	Events []scoreboardEvent `json:"events"`
}

type scoreboardEvent struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Status struct {
		Type struct {
			Description string `json:"description"`
		} `json:"type"`
	} `json:"status"`
	Competitions []struct {
		Competitors []competitor `json:"competitors"`
	} `json:"competitions"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		DisplayName string `json:"displayName"`
	} `json:"team"`
}

func (r *Retriever) fetchScoreboard(ctx context.Context, sess Session, url string) ([]domain.StructuredEvent, error) {
	var resp scoreboardResponse
	if err := sess.FetchJSON(ctx, url, &resp); err != nil {
		return nil, err
	}

	events := make([]domain.StructuredEvent, 0, len(resp.Events))
	for _, raw := range resp.Events {
		ev := domain.StructuredEvent{
			GameID:    raw.ID,
			StartTime: raw.Date,
			Status:    raw.Status.Type.Description,
		}
		if len(raw.Competitions) > 0 {
			for _, c := range raw.Competitions[0].Competitors {
				score, _ := strconv.Atoi(c.Score)
				if c.HomeAway == "home" {
					ev.HomeTeam = c.Team.DisplayName
					ev.HomeScore = score
				} else {
					ev.AwayTeam = c.Team.DisplayName
					ev.AwayScore = score
				}
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

type boxscoreResponse struct {
	Boxscore struct {
		Players []struct {
			Team struct {
				DisplayName string `json:"displayName"`
			} `json:"team"`
			Statistics []struct {
				Labels   []string `json:"labels"`
				Athletes []struct {
					Athlete struct {
						DisplayName string `json:"displayName"`
					} `json:"athlete"`
					Stats []string `json:"stats"`
				} `json:"athletes"`
			} `json:"statistics"`
		} `json:"players"`
	} `json:"boxscore"`
}

// playerStats scans each event's boxscore for the first athlete whose name
// contains the fragment. Fetch failures skip to the next event.
func (r *Retriever) playerStats(
	ctx context.Context, sess Session, events []domain.StructuredEvent, fragment string,
) (*domain.PlayerStatRecord, string, bool) {
	for _, ev := range events {
		url := fmt.Sprintf("%s/summary?event=%s", r.apiBase, ev.GameID)

		var resp boxscoreResponse
		if err := sess.FetchJSON(ctx, url, &resp); err != nil {
			r.logger.Warn("boxscore fetch failed",
				zap.String("game_id", ev.GameID), zap.Error(err))
			continue
		}

		for _, teamBox := range resp.Boxscore.Players {
			for _, stats := range teamBox.Statistics {
				for _, ath := range stats.Athletes {
					if !strings.Contains(strings.ToLower(ath.Athlete.DisplayName), fragment) {
						continue
					}
					rec := zipStats(stats.Labels, ath.Stats)
					rec.Player = ath.Athlete.DisplayName
					rec.Team = teamBox.Team.DisplayName
					rec.GameID = ev.GameID
					if rec.Degraded {
						r.logger.Warn("stat label/value length mismatch",
							zap.String("player", rec.Player),
							zap.Int("labels", len(stats.Labels)),
							zap.Int("values", len(ath.Stats)),
						)
					}
					return rec, url, true
				}
			}
		}
	}
	return nil, "", false
}

// zipStats pairs labels with values positionally. Mismatched lengths are a
// provider data-integrity problem; the record truncates to the shorter array
// and is marked degraded rather than guessing alignment.
func zipStats(labels, values []string) *domain.PlayerStatRecord {
	n := len(labels)
	if len(values) < n {
		n = len(values)
	}

	rec := &domain.PlayerStatRecord{
		Labels:   labels[:n],
		Stats:    make(map[string]string, n),
		Degraded: len(labels) != len(values),
	}
	for i := 0; i < n; i++ {
		rec.Stats[labels[i]] = values[i]
	}
	return rec
}

// --- Scrape fallback ---

func (r *Retriever) scrape(ctx context.Context, sess Session) []domain.StructuredEvent {
	doc, err := sess.FetchHTML(ctx, r.siteURL)
	if err != nil {
		r.logger.Warn("scoreboard page scrape failed", zap.Error(err))
		return nil
	}

	text := doc.Find("body").Text()
	matches := scrapeLineRe.FindAllStringSubmatch(text, -1)

	events := make([]domain.StructuredEvent, 0, len(matches))
	for _, m := range matches {
		away, _ := strconv.Atoi(m[2])
		home, _ := strconv.Atoi(m[3])
		events = append(events, domain.StructuredEvent{
			AwayTeam:  strings.TrimSpace(m[1]),
			AwayScore: away,
			HomeTeam:  strings.TrimSpace(m[4]),
			HomeScore: home,
			Status:    strings.TrimSpace(m[5]),
			Scraped:   true,
		})
	}
	return events
}

// --- Query matching ---

func mentionedTeams(lower string) []string {
	var teams []string
	for _, team := range nbaTeams {
		if strings.Contains(lower, team) {
			teams = append(teams, team)
		}
	}
	return teams
}

func mentionedPlayers(lower string) []string {
	var players []string
	for _, p := range knownPlayers {
		if strings.Contains(lower, p) {
			players = append(players, p)
		}
	}
	return players
}

// findGame returns the event whose competitor names contain every mentioned
// team.
func findGame(events []domain.StructuredEvent, teams []string) (domain.StructuredEvent, bool) {
	for _, ev := range events {
		competitors := strings.ToLower(ev.HomeTeam + " " + ev.AwayTeam)
		all := true
		for _, team := range teams {
			if !strings.Contains(competitors, team) {
				all = false
				break
			}
		}
		if all {
			return ev, true
		}
	}
	return domain.StructuredEvent{}, false
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// --- Rendering for the language model ---

func renderScoreboard(date time.Time, events []domain.StructuredEvent) string {
	if len(events) == 0 {
		return fmt.Sprintf("No NBA games scheduled on %s.", date.Format("2006-01-02"))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "NBA scoreboard for %s:\n", date.Format("2006-01-02"))
	for _, ev := range events {
		sb.WriteString(renderGame(ev))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func renderGame(ev domain.StructuredEvent) string {
	return fmt.Sprintf("%s %d - %d %s (%s)",
		ev.AwayTeam, ev.AwayScore, ev.HomeScore, ev.HomeTeam, ev.Status)
}

func renderStats(rec *domain.PlayerStatRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s), game %s:\n", rec.Player, rec.Team, rec.GameID)
	for _, label := range rec.Labels {
		fmt.Fprintf(&sb, "%s: %s\n", label, rec.Stats[label])
	}
	if rec.Degraded {
		sb.WriteString("Note: stat data was partially misaligned and has been truncated.\n")
	}
	return strings.TrimSpace(sb.String())
}

func renderScraped(events []domain.StructuredEvent) string {
	var sb strings.Builder
	sb.WriteString("Scores scraped from the scoreboard page (unverified layout):\n")
	for _, ev := range events {
		sb.WriteString(renderGame(ev))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
