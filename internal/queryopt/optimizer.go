// Package queryopt rewrites raw questions into search-engine-friendly
// queries: season context is injected when no temporal cue is present,
// "last year"/"last season" resolve to a concrete year, and sport
// qualifiers are appended.
package queryopt

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

var (
	yearRe     = regexp.MustCompile(`\b\d{4}\b`)
	nflWeekRe  = regexp.MustCompile(`(?i)week\s*\d+`)
	lastTermRe = regexp.MustCompile(`(?i)last (year|season)`)
)

// temporalTerms are phrases that already pin a query in time; their presence
// suppresses season-qualifier injection.
var temporalTerms = []string{
	"today", "tonight", "yesterday", "this week", "this season",
	"last night", "tomorrow", "recent", "last game", "last year",
	"last season", "previous season",
}

// broadSuffix biases the search provider toward sports results without
// restricting it to specific sites.
const broadSuffix = " NBA NFL basketball football sports scores stats"

// defaultNFLCutoff: before September the current calendar year still belongs
// to the previous NFL season. A scheduling heuristic, not load-bearing.
const defaultNFLCutoff = time.August

// Optimizer rewrites queries for the retrieval layer.
type Optimizer struct {
	now       func() time.Time
	nflCutoff time.Month
}

// New creates an Optimizer using the real clock.
func New() *Optimizer {
	return &Optimizer{now: time.Now, nflCutoff: defaultNFLCutoff}
}

// WithClock overrides the clock. Used by tests and deterministic replays.
func (o *Optimizer) WithClock(now func() time.Time) *Optimizer {
	o.now = now
	return o
}

// WithNFLCutoff overrides the month through which the current calendar year
// is still attributed to the previous NFL season.
func (o *Optimizer) WithNFLCutoff(m time.Month) *Optimizer {
	if m >= time.January && m <= time.December {
		o.nflCutoff = m
	}
	return o
}

// Optimize builds a Query from raw text and its sport tag. Rules apply in
// order: an explicit 4-digit year always wins; season context is injected
// only when no year and no temporal cue is present; only the exact phrases
// "last year"/"last season" are rewritten; "next season" or "two years ago"
// pass through unchanged.
func (o *Optimizer) Optimize(raw string, sport domain.SportTag) domain.Query {
	lower := strings.ToLower(raw)

	hasYear := yearRe.MatchString(raw)
	hasTemporal := hasTemporalTerm(lower) || nflWeekRe.MatchString(raw)

	optimized := raw
	switch {
	case !hasYear && !hasTemporal:
		optimized = raw + " " + o.seasonQualifier(sport)
	case strings.Contains(lower, "last year") || strings.Contains(lower, "last season"):
		lastYear := o.now().UTC().Year() - 1
		optimized = replaceFirst(raw, lastTermRe, fmt.Sprintf("%d season", lastYear))
	}

	// Sport name, only when the tag is unambiguous and not already present.
	if sport == domain.SportNBA && !strings.Contains(lower, "nba") {
		optimized += " NBA"
	} else if sport == domain.SportNFL && !strings.Contains(lower, "nfl") {
		optimized += " NFL"
	}

	optimized += broadSuffix

	return domain.Query{
		Raw:            raw,
		Sport:          sport,
		HasYear:        hasYear,
		HasTemporalCue: hasTemporal,
		Optimized:      optimized,
	}
}

// seasonQualifier pins a query to the current competitive season.
func (o *Optimizer) seasonQualifier(sport domain.SportTag) string {
	nowUTC := o.now().UTC()
	seasonYear := nowUTC.Year()
	if sport == domain.SportNFL && nowUTC.Month() <= o.nflCutoff {
		seasonYear--
	}

	switch sport {
	case domain.SportNBA:
		return fmt.Sprintf("%d-%02d season", seasonYear, (seasonYear+1)%100)
	case domain.SportNFL:
		return fmt.Sprintf("%d season", seasonYear)
	default:
		return fmt.Sprintf("%d", seasonYear)
	}
}

func hasTemporalTerm(lower string) bool {
	for _, term := range temporalTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// replaceFirst substitutes only the first regexp match.
func replaceFirst(s string, re *regexp.Regexp, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
