// Package classify maps free-text questions to a sport tag using fixed
// keyword sets. Matching is pure lowercase substring containment; ambiguous
// or empty matches default to both sports rather than guessing.
package classify

import (
	"strings"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

var nbaKeywords = []string{
	"basketball", "nba",
	"lebron", "giannis",
	"lakers", "celtics", "warriors", "bulls", "heat", "nets", "knicks",
	"bucks", "76ers", "raptors", "cavaliers", "pistons", "pacers", "hawks",
	"hornets", "wizards", "magic", "grizzlies", "pelicans", "spurs",
	"mavericks", "thunder", "trail blazers", "jazz", "nuggets",
	"timberwolves", "kings", "clippers", "suns",
}

var nflKeywords = []string{
	"football", "nfl",
	"mahomes", "lamar jackson",
	"chiefs", "patriots", "eagles", "bears", "lions", "packers", "vikings",
	"falcons", "panthers", "saints", "buccaneers", "commanders", "cowboys",
	"giants", "jets", "dolphins", "bills", "steelers", "browns", "bengals",
	"ravens", "chargers", "raiders", "broncos", "cardinals", "seahawks",
	"rams",
}

// Sport classifies a query. Exactly one matching keyword set tags the sport;
// both or neither tags SportBoth.
func Sport(query string) domain.SportTag {
	lower := strings.ToLower(query)
	hasNBA := containsAny(lower, nbaKeywords)
	hasNFL := containsAny(lower, nflKeywords)

	switch {
	case hasNBA && !hasNFL:
		return domain.SportNBA
	case hasNFL && !hasNBA:
		return domain.SportNFL
	default:
		return domain.SportBoth
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
