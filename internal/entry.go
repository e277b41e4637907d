// Package internal wires the lexdesk components and runs the server and
// the one-shot commands.
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

	"github.com/starford/lexdesk/internal/api"
	"github.com/starford/lexdesk/internal/office"
	"github.com/starford/lexdesk/internal/render"
	"github.com/starford/lexdesk/internal/sse"
	"github.com/starford/lexdesk/internal/storage"
)

const (
	statsThrottle   = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// Run serves the HTTP API until ctx is cancelled or a termination signal
// arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger
	slog.SetDefault(logger)

	logger.Info("starting lexdesk",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("remote_driver", cfg.Remote.Driver),
		slog.Bool("sync_enabled", cfg.Sync.Enabled))

	c, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()
	c.wireSessions()

	broker := sse.NewBroker(statsThrottle, sse.WithStats(func() any { return c.office.Counts() }))
	defer broker.Close()
	c.office.Subscribe(func(ev office.ChangeEvent) {
		broker.PublishChange(ev.Collection, string(ev.Op), sse.ChangeData{
			ID:     ev.ID,
			Origin: string(ev.Origin),
			Keys:   ev.Keys,
		})
		c.sync.Notify(ev.Origin == office.OriginRemote)
	})

	srv := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           c.router(ctx, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Storage.Driver == storage.DriverFS {
		g.Go(func() error { return c.watchStore(gctx) })
	}
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error { return waitAndShutdown(gctx, logger, srv) })

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// router mounts the API under /api next to the unauthenticated probes.
func (c *components) router(ctx context.Context, events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"ok","sync":%q}`, c.sync.Phase())
	})

	r.Mount("/api", api.NewRouter(api.Deps{
		Office:  c.office,
		Auth:    c.auth,
		Sync:    c.sync,
		AI:      c.generator(ctx),
		Printer: render.NewPrinter(),
		Events:  events,
	}))
	return r
}

// watchStore reloads collections edited on disk by another process.
func (c *components) watchStore(ctx context.Context) error {
	return storage.Watch(ctx, c.cfg.Storage.Path, c.logger, func(key string) {
		if err := c.office.ReloadKeys(ctx, []string{key}); err != nil {
			c.logger.Warn("reload failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	})
}

func waitAndShutdown(ctx context.Context, logger *slog.Logger, srv *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}
	return errShutdown
}
