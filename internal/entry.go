// Package internal wires configuration, storage, the index and the HTTP
// surface into a running documentation server.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/pellmark/folio/internal/api"
	"github.com/pellmark/folio/internal/docservice"
	"github.com/pellmark/folio/internal/index"
	"github.com/pellmark/folio/internal/metrics"
	"github.com/pellmark/folio/internal/sse"
	"github.com/pellmark/folio/internal/storage"
)

const (
	navThrottle     = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Run starts the documentation server and blocks until ctx is cancelled,
// a termination signal arrives, or a fatal component error occurs.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	if app.version == "" {
		app.version = "dev"
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Folio starting",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("corpus_path", cfg.Corpus.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Corpus.Path, 0o755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Corpus.Path, storage.WithIgnore(cfg.Corpus.Ignore...))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// An incomplete index is served rather than refusing to start; the
	// watcher and manual re-sync both repair it later.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(navThrottle)
	defer broker.Close()
	metrics.RegisterSSEClients(broker.ClientCount)

	svc := docservice.NewService(store, db)
	handler := buildHandler(cfg, svc, broker)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGINT or SIGTERM cancels the group context, which triggers the
	// shutdown goroutine below.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Watcher failure degrades the server to manual sync instead of
	// taking it down.
	g.Go(func() error {
		watchErr := index.Watch(gCtx, db, store, cfg.Corpus.Path, logger, func(kind, path string) {
			broker.PublishDocEvent(kind, path)
		})
		if watchErr != nil {
			logger.Warn("file watcher stopped", slog.String("error", watchErr.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("address", httpServer.Addr))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutdown requested, draining HTTP server")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutErr := httpServer.Shutdown(shCtx); shutErr != nil {
			return fmt.Errorf("http shutdown: %w", shutErr)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// buildHandler assembles the root router: health and metrics stay open,
// the REST API mounts under /api, and attachment downloads stay at the
// root so image references like /attachments/logo.png resolve exactly
// as written in documents.
func buildHandler(cfg *Config, svc *docservice.Service, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Corpus.Path))

	attachments := api.NewAttachmentHandler(cfg.Corpus.Path)
	r.Get("/attachments/{filename}", attachments.ServeFile)

	return r
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
