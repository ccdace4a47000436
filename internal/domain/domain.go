package domain

import "time"

// SportTag classifies a query as NBA-related, NFL-related, or ambiguous.
type SportTag string

const (
	SportNBA  SportTag = "NBA"
	SportNFL  SportTag = "NFL"
	SportBoth SportTag = "both"
)

// Query is a user question with its derived attributes.
// Built once per request, discarded after use.
type Query struct {
	Raw            string
	Sport          SportTag
	HasYear        bool
	HasTemporalCue bool
	Optimized      string
}

// SearchResult is one result from the web search provider,
// in provider relevance order.
type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// StructuredEvent identifies one game sourced from a structured data endpoint.
type StructuredEvent struct {
	GameID    string `json:"game_id"`
	StartTime string `json:"start_time"`
	Status    string `json:"status"`
	HomeTeam  string `json:"home_team"`
	HomeScore int    `json:"home_score"`
	AwayTeam  string `json:"away_team"`
	AwayScore int    `json:"away_score"`
	// Scraped marks events recovered from the HTML fallback rather than
	// the structured API.
	Scraped bool `json:"scraped,omitempty"`
}

// PlayerStatRecord holds one player's box score line for a single game.
// Labels preserves the provider's stat ordering; Stats maps label to value.
type PlayerStatRecord struct {
	Player string            `json:"player"`
	Team   string            `json:"team"`
	GameID string            `json:"game_id"`
	Labels []string          `json:"labels"`
	Stats  map[string]string `json:"stats"`
	// Degraded is set when the provider's label and value arrays had
	// mismatched lengths and the record was truncated to the shorter one.
	Degraded bool `json:"degraded,omitempty"`
}

// Link is a cited source shown alongside an answer.
// No two links in a response share a URL after trailing-punctuation
// normalization.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is a single rendered message. Requests carry exactly one prior
// user turn; no multi-turn context is kept server-side.
type ChatTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Links     []Link    `json:"links,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultKind tags what a retrieval produced.
type ResultKind string

const (
	KindSearch      ResultKind = "search"
	KindScoreboard  ResultKind = "scoreboard"
	KindGameScore   ResultKind = "game_score"
	KindPlayerStats ResultKind = "player_stats"
	KindScraped     ResultKind = "scraped"
	KindNotFound    ResultKind = "not_found"
)

// RawResult is the output of a Retriever. Text is the rendered block handed
// to the language model as tool output; Events and Stats carry the structured
// payloads when the browse-backed path produced them; Sources lists the URLs
// consulted during retrieval.
type RawResult struct {
	Kind    ResultKind        `json:"kind"`
	Text    string            `json:"-"`
	Events  []StructuredEvent `json:"events,omitempty"`
	Stats   *PlayerStatRecord `json:"stats,omitempty"`
	Sources []string          `json:"sources,omitempty"`
}
