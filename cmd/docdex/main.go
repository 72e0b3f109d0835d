package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/config"
	"github.com/kailas-cloud/docdex/internal/extract"
	logpkg "github.com/kailas-cloud/docdex/internal/logger"
	"github.com/kailas-cloud/docdex/internal/metrics"
	"github.com/kailas-cloud/docdex/internal/repository/conversation"
	"github.com/kailas-cloud/docdex/internal/repository/docstore"
	"github.com/kailas-cloud/docdex/internal/repository/tracker"
	chiTransport "github.com/kailas-cloud/docdex/internal/transport/chi"
	openaiChat "github.com/kailas-cloud/docdex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/docdex/internal/usecase/answer"
	documentuc "github.com/kailas-cloud/docdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docdex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/docdex/internal/usecase/usage"
	"github.com/kailas-cloud/docdex/internal/version"
	"github.com/kailas-cloud/docdex/internal/watcher"
)

func main() {
	_ = godotenv.Load()

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

	logger.Info("Starting docdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("data_dir", cfg.Storage.DataDir),
	)

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Open persisted stores.
	store := docstore.Open(filepath.Join(cfg.Storage.DataDir, "documents.json"), logger)
	defer func() { _ = store.Close() }()

	processed := tracker.Open(filepath.Join(cfg.Storage.DataDir, "processed_files.json"), logger)
	memory := conversation.Open(filepath.Join(cfg.Storage.DataDir, "conversations.json"), logger)

	// Use case services
	docSvc := documentuc.New(store, logger)
	searchSvc := searchuc.New(store, logger)
	extractor := extract.New().WithChunking(cfg.Ingest.ChunkSize, cfg.Ingest.Overlap)
	ingestSvc := ingestuc.New(extractor, processed, docSvc, logger)

	usageTracker := usageuc.NewTracker()
	usageSvc := usageuc.New(usageTracker)

	// Chat provider is optional; without it /v1/ask degrades to its fallback reply.
	var chatModel answeruc.ChatModel
	var chatChecker healthuc.ChatChecker
	if cfg.Chat.Model != "" {
		chat := openaiChat.NewChatClient(&openaiChat.Config{
			APIKey:      cfg.Chat.APIKey,
			BaseURL:     cfg.Chat.BaseURL,
			Model:       cfg.Chat.Model,
			Temperature: cfg.Chat.Temperature,
			Provider:    cfg.Chat.Provider,
			Usage:       usageTracker,
			Logger:      logger,
		})
		chatModel = chat
		chatChecker = chat
		logger.Info("Chat client created",
			zap.String("provider", cfg.Chat.Provider),
			zap.String("model", cfg.Chat.Model),
		)
	} else {
		chatModel = unavailableChat{}
		logger.Warn("No chat model configured, /v1/ask will return fallback replies")
	}

	answerSvc := answeruc.New(searchSvc, chatModel, memory, logger).WithTopK(cfg.Retrieval.TopK)
	healthSvc := healthuc.New(store, chatChecker)

	// Create chi server
	server := chiTransport.NewServer(docSvc, ingestSvc, searchSvc, answerSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Inbox watcher
	if cfg.Ingest.Watch {
		w := watcher.New(cfg.Ingest.InboxDir, ingestSvc, extractor.Supported, logger)
		go func() {
			if err := w.Run(rootCtx); err != nil {
				logger.Error("Inbox watcher stopped", zap.Error(err))
			}
		}()
	}

	// Expired conversations are dropped once an hour.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if n := memory.CleanupExpired(); n > 0 {
					logger.Info("Expired conversations removed", zap.Int("count", n))
				}
			}
		}
	}()

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
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// unavailableChat stands in when no chat provider is configured.
type unavailableChat struct{}

func (unavailableChat) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("no chat model configured")
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

			// Canonical log line, one per request
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
