package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nikhildd32/cf-ai-scout/internal/domain"
	chatuc "github.com/nikhildd32/cf-ai-scout/internal/usecase/chat"
)

// Response modes for POST /api/chat.
const (
	ModeJSON   = "json"
	ModeStream = "stream"
)

// Error response codes.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeRateLimited      = "rate_limited"
	codeCompletionError  = "completion_provider_error"
	codeRetrievalError   = "retrieval_provider_error"
	codeConfigurationErr = "configuration_error"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the chat pipeline over HTTP.
type Server struct {
	chat          *chatuc.Service
	mode          string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. mode selects the /api/chat response
// variant: ModeJSON (default) or ModeStream.
func NewServer(chat *chatuc.Service, mode string, logger *zap.Logger) *Server {
	if mode == "" {
		mode = ModeJSON
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		chat:   chat,
		mode:   mode,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyMessage, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrCompletionProvider, http.StatusBadGateway, codeCompletionError),
		sentinelHandler(domain.ErrSearchProvider, http.StatusBadGateway, codeRetrievalError),
		sentinelHandler(domain.ErrSessionUnavailable, http.StatusBadGateway, codeRetrievalError),
		sentinelHandler(domain.ErrMissingCredential, http.StatusInternalServerError, codeConfigurationErr),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/chat", s.Chat)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
	domain.ChatTurn
	Thinking chatuc.Thinking `json:"thinking"`
	Data     *structuredData `json:"data,omitempty"`
}

// structuredData carries machine-readable payloads for scoreboard and
// player-stat answers.
type structuredData struct {
	Events []domain.StructuredEvent `json:"events,omitempty"`
	Stats  *domain.PlayerStatRecord `json:"stats,omitempty"`
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "message is required")
		return
	}

	if s.mode == ModeStream {
		s.chatStream(w, r, req.Message)
		return
	}
	s.chatJSON(w, r, req.Message)
}

func (s *Server) chatJSON(w http.ResponseWriter, r *http.Request, message string) {
	ans, err := s.chat.Ask(r.Context(), message)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := chatResponse{
		Success: true,
		Answer:  ans.Text,
		ChatTurn: domain.ChatTurn{
			Role:      domain.RoleAssistant,
			Content:   ans.Text,
			Links:     ans.Links,
			Timestamp: time.Now().UTC(),
		},
		Thinking: ans.Thinking,
	}
	if data := structuredFromResult(ans.Result); data != nil {
		resp.Data = data
	}

	writeJSON(w, http.StatusOK, resp)
}

// chatStream delivers the answer as chunked plain-text deltas. Once the
// first chunk is written the status is committed, so later failures can only
// be logged and the stream cut short.
func (s *Server) chatStream(w http.ResponseWriter, r *http.Request, message string) {
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	started := false
	err := s.chat.AskStream(r.Context(), message, func(delta string) error {
		if !started {
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, werr := w.Write([]byte(delta)); werr != nil {
			return werr
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		if !started {
			s.handleDomainError(w, err)
			return
		}
		s.logger.Warn("stream interrupted", zap.Error(err))
	}
}

func structuredFromResult(res domain.RawResult) *structuredData {
	switch res.Kind {
	case domain.KindScoreboard, domain.KindGameScore, domain.KindScraped:
		if len(res.Events) > 0 {
			return &structuredData{Events: res.Events}
		}
	case domain.KindPlayerStats:
		if res.Stats != nil {
			return &structuredData{Stats: res.Stats}
		}
	}
	return nil
}

// HealthCheck handles GET /healthz. The service holds no connections of its
// own, so readiness is process liveness.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyMessage,
		domain.ErrRateLimited,
		domain.ErrCompletionProvider,
		domain.ErrSearchProvider,
		domain.ErrSessionUnavailable,
		domain.ErrMissingCredential,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
