// Package assemble turns a completion text plus retrieval-captured URLs into
// cleaned display text and an ordered list of unique source links.
package assemble

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
)

const (
	// maxLinks caps the link list, preserving discovery order.
	maxLinks = 8
	// minURLLen/maxURLLen bound the sane length band for extracted URLs.
	minURLLen = 15
	maxURLLen = 500
)

var (
	urlRe   = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)
	blankRe = regexp.MustCompile(`[ \t]{2,}`)
)

// knownDomains maps sports-media hosts to display titles. Matched by suffix
// so subdomains resolve to the same title.
var knownDomains = map[string]string{
	"espn.com":           "ESPN",
	"nba.com":            "NBA.com",
	"nfl.com":            "NFL.com",
	"sports.yahoo.com":   "Yahoo Sports",
	"yahoo.com":          "Yahoo Sports",
	"bleacherreport.com": "Bleacher Report",
	"theathletic.com":    "The Athletic",
	"sportingnews.com":   "Sporting News",
	"cbssports.com":      "CBS Sports",
	"foxsports.com":      "Fox Sports",
	"nbcsports.com":      "NBC Sports",
}

// Assemble extracts URLs from the completion text, unions them with URLs
// captured during retrieval, deduplicates, titles, and strips the raw URLs
// from the display text.
func Assemble(text string, captured []string) (string, []domain.Link) {
	matched := urlRe.FindAllString(text, -1)

	seen := make(map[string]struct{})
	var links []domain.Link
	for _, raw := range append(append([]string{}, matched...), captured...) {
		if len(raw) < minURLLen || len(raw) > maxURLLen {
			continue
		}
		normalized := strings.TrimRight(raw, ".,;:!?'\"")
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		if len(links) == maxLinks {
			// Keep marking duplicates as seen, but add nothing past the cap.
			continue
		}
		links = append(links, domain.Link{Title: titleFor(normalized), URL: normalized})
	}

	display := text
	for _, raw := range matched {
		display = strings.ReplaceAll(display, raw, "")
	}
	display = blankRe.ReplaceAllString(display, " ")
	display = strings.TrimSpace(display)

	return display, links
}

// titleFor resolves a human-readable source title for a URL: known
// sports-media hosts get their exact names, anything else gets the first
// domain label capitalized.
func titleFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "Source"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	for suffix, title := range knownDomains {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return title
		}
	}

	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "Source"
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
