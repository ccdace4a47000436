package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nikhildd32/cf-ai-scout/internal/config"
	logpkg "github.com/nikhildd32/cf-ai-scout/internal/logger"
	"github.com/nikhildd32/cf-ai-scout/internal/metrics"
	"github.com/nikhildd32/cf-ai-scout/internal/queryopt"
	"github.com/nikhildd32/cf-ai-scout/internal/retriever/brave"
	"github.com/nikhildd32/cf-ai-scout/internal/retriever/espn"
	chiTransport "github.com/nikhildd32/cf-ai-scout/internal/transport/chi"
	openaiLLM "github.com/nikhildd32/cf-ai-scout/internal/transport/openai"
	chatuc "github.com/nikhildd32/cf-ai-scout/internal/usecase/chat"
	"github.com/nikhildd32/cf-ai-scout/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting scout API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("model", cfg.LLM.Model),
		zap.String("primary_retrieval", cfg.Retrieval.Primary),
		zap.String("fallback_retrieval", cfg.Retrieval.Fallback),
		zap.String("response_mode", cfg.Response.Mode),
	)

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Build retrieval chain — composition root
	primary := buildRetriever(cfg.Retrieval.Primary, cfg, logger)
	var fallback chatuc.Retriever
	if cfg.Retrieval.Fallback != "" && cfg.Retrieval.Fallback != "none" {
		fallback = buildRetriever(cfg.Retrieval.Fallback, cfg, logger)
	}
	retriever := chatuc.NewFallback(primary, fallback, logger)

	completer := openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Logger:  logger,
	})

	optimizer := queryopt.New().WithNFLCutoff(time.Month(cfg.Optimizer.NFLSeasonCutoffMonth))

	chatSvc := chatuc.New(completer, retriever, optimizer, logger)

	// Create chi server
	server := chiTransport.NewServer(chatSvc, cfg.Response.Mode, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildRetriever maps a strategy name from config to its implementation.
// Validate() already rejected unknown names.
func buildRetriever(name string, cfg config.Config, logger *zap.Logger) chatuc.Retriever {
	switch name {
	case config.StrategyScoreboard:
		return espn.New(&espn.Config{
			Sessions: espn.NewHTTPSessionFactory(time.Duration(cfg.Scoreboard.TimeoutSec) * time.Second),
			APIBase:  cfg.Scoreboard.APIBaseURL,
			SiteURL:  cfg.Scoreboard.SiteURL,
			Logger:   logger,
		})
	default:
		return brave.New(&brave.Config{
			APIKey:      cfg.Search.APIKey,
			BaseURL:     cfg.Search.BaseURL,
			ResultCount: cfg.Search.ResultCount,
			Timeout:     time.Duration(cfg.Search.TimeoutSec) * time.Second,
			Logger:      logger,
		})
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
