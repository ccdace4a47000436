package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
	"github.com/nikhildd32/cf-ai-scout/internal/queryopt"
	chatuc "github.com/nikhildd32/cf-ai-scout/internal/usecase/chat"
)

// --- Mocks ---

type scriptedCompleter struct {
	responses  []domain.Message
	err        error
	streamText string
	calls      int
}

func (m *scriptedCompleter) Complete(
	_ context.Context, _ []domain.Message, _ []domain.ToolSpec,
) (domain.Message, error) {
	if m.err != nil {
		return domain.Message{}, m.err
	}
	i := m.calls
	m.calls++
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *scriptedCompleter) Stream(
	_ context.Context, _ []domain.Message, onDelta func(string) error,
) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	for _, chunk := range strings.SplitAfter(m.streamText, " ") {
		if err := onDelta(chunk); err != nil {
			return "", err
		}
	}
	return m.streamText, nil
}

type fixedRetriever struct {
	result domain.RawResult
	err    error
}

func (m *fixedRetriever) Retrieve(_ context.Context, _ string) (domain.RawResult, error) {
	return m.result, m.err
}

func newTestRouter(t *testing.T, completer chatuc.Completer, retriever chatuc.Retriever, mode string) http.Handler {
	t.Helper()
	svc := chatuc.New(completer, retriever, queryopt.New(), nil)
	r := chi.NewRouter()
	NewServer(svc, mode, nil).Register(r)
	return r
}

func toolCallMsg(query string) domain.Message {
	return domain.Message{
		Role: domain.MessageRoleAssistant,
		ToolCalls: []domain.ToolCall{
			{ID: "call_1", Name: "search_sports_data", Arguments: `{"query":"` + query + `"}`},
		},
	}
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func rawKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// --- Tests ---

func TestChat_JSONMode_GameScore(t *testing.T) {
	completer := &scriptedCompleter{responses: []domain.Message{
		toolCallMsg("Lakers vs Warriors score"),
		{Role: domain.MessageRoleAssistant, Content: "The Warriors beat the Lakers 112-104."},
	}}
	retriever := &fixedRetriever{result: domain.RawResult{
		Kind: domain.KindGameScore,
		Text: "Los Angeles Lakers 104 - 112 Golden State Warriors (Final)",
		Events: []domain.StructuredEvent{{
			GameID: "401", Status: "Final",
			HomeTeam: "Golden State Warriors", HomeScore: 112,
			AwayTeam: "Los Angeles Lakers", AwayScore: 104,
		}},
		Sources: []string{"https://site.api.espn.com/scoreboard"},
	}}
	h := newTestRouter(t, completer, retriever, ModeJSON)

	w := postChat(t, h, `{"message":"Lakers vs Warriors score"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("want success true")
	}
	if !strings.Contains(resp.Answer, "112-104") {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.Content != resp.Answer {
		t.Errorf("turn content %q diverges from answer %q", resp.Content, resp.Answer)
	}
	if resp.Role != domain.RoleAssistant {
		t.Errorf("want assistant role, got %q", resp.Role)
	}

	// Clients key on the top-level "answer" field; it must be present
	// verbatim in the wire body.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw response: %v", err)
	}
	if _, ok := raw["answer"]; !ok {
		t.Errorf("response body missing \"answer\" key, got keys %v", rawKeys(raw))
	}
	if resp.Thinking.DataKind != domain.KindGameScore {
		t.Errorf("want data_kind game_score, got %q", resp.Thinking.DataKind)
	}
	if resp.Data == nil || len(resp.Data.Events) != 1 || resp.Data.Events[0].HomeScore != 112 {
		t.Errorf("structured events missing or wrong: %+v", resp.Data)
	}
}

func TestChat_MalformedJSON(t *testing.T) {
	h := newTestRouter(t, &scriptedCompleter{}, &fixedRetriever{}, ModeJSON)

	w := postChat(t, h, `{"message":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeBadRequest {
		t.Errorf("want code %q, got %q", codeBadRequest, resp.Code)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	h := newTestRouter(t, &scriptedCompleter{}, &fixedRetriever{}, ModeJSON)

	for _, body := range []string{`{}`, `{"message":""}`} {
		w := postChat(t, h, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: want 400, got %d", body, w.Code)
		}
	}
}

func TestChat_UnknownPath(t *testing.T) {
	h := newTestRouter(t, &scriptedCompleter{}, &fixedRetriever{}, ModeJSON)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

func TestChat_CompleterErrorMapsToBadGateway(t *testing.T) {
	completer := &scriptedCompleter{err: domain.ErrCompletionProvider}
	h := newTestRouter(t, completer, &fixedRetriever{}, ModeJSON)

	w := postChat(t, h, `{"message":"lakers score"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("want 502, got %d: %s", w.Code, w.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeCompletionError {
		t.Errorf("want code %q, got %q", codeCompletionError, resp.Code)
	}
}

func TestChat_RateLimitedMapsTo429(t *testing.T) {
	completer := &scriptedCompleter{err: domain.ErrRateLimited}
	h := newTestRouter(t, completer, &fixedRetriever{}, ModeJSON)

	w := postChat(t, h, `{"message":"lakers score"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", w.Code)
	}
}

func TestChat_StreamMode(t *testing.T) {
	completer := &scriptedCompleter{
		responses:  []domain.Message{toolCallMsg("NBA games today")},
		streamText: "Two games are on tonight.",
	}
	retriever := &fixedRetriever{result: domain.RawResult{
		Kind: domain.KindScoreboard,
		Text: "NBA scoreboard:",
	}}
	h := newTestRouter(t, completer, retriever, ModeStream)

	w := postChat(t, h, `{"message":"NBA games today"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain, got %q", ct)
	}
	if w.Body.String() != "Two games are on tonight." {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestChat_StreamModeErrorBeforeFirstChunk(t *testing.T) {
	completer := &scriptedCompleter{err: domain.ErrCompletionProvider}
	h := newTestRouter(t, completer, &fixedRetriever{}, ModeStream)

	w := postChat(t, h, `{"message":"lakers score"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("want 502, got %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, &scriptedCompleter{}, &fixedRetriever{}, ModeJSON)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}
