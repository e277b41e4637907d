package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/lexdesk/internal/aiproxy"
	"github.com/starford/lexdesk/internal/auth"
	"github.com/starford/lexdesk/internal/office"
	"github.com/starford/lexdesk/internal/remotekv"
	"github.com/starford/lexdesk/internal/storage"
	"github.com/starford/lexdesk/internal/syncer"
	"github.com/starford/lexdesk/internal/tenant"
)

// components is the wired application core shared by every command.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	store   storage.Provider
	office  *office.Service
	auth    *auth.Service
	remote  remotekv.Store
	tenants *tenant.Resolver
	sync    *syncer.Syncer
}

// fixedSession reports one principal for the lifetime of a command.
type fixedSession string

func (f fixedSession) PrincipalID() (string, bool) { return string(f), f != "" }

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

// build opens storage, loads the office state and wires tenant resolution
// and sync. The caller must call close.
func (app *application) build(ctx context.Context) (*components, error) {
	cfg := app.config
	logger := app.logger

	dir := cfg.Storage.Path
	if cfg.Storage.Driver != storage.DriverFS {
		dir = filepath.Dir(dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	c := &components{cfg: cfg, logger: logger, store: store}

	c.office = office.NewService(store, office.WithLogger(logger))
	if err := c.office.Load(ctx); err != nil {
		c.close()
		return nil, fmt.Errorf("load office state: %w", err)
	}

	c.auth, err = auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.ServiceAccounts())
	if err != nil {
		c.close()
		return nil, fmt.Errorf("init auth: %w", err)
	}

	remote, profiles, err := remotekv.Open(cfg.Remote.Options())
	if err != nil {
		c.close()
		return nil, fmt.Errorf("init remote store: %w", err)
	}
	c.remote = remote
	if !remote.Configured() {
		logger.Warn("remote store not configured, cloud sync unavailable",
			slog.String("driver", cfg.Remote.Driver))
	}

	var session tenant.SessionSource = c.auth
	if app.principal != "" {
		session = fixedSession(app.principal)
	}
	c.tenants = tenant.NewResolver(store, remote, profiles, session, tenant.WithLogger(logger))

	debounce := cfg.Sync.Debounce
	if debounce <= 0 {
		debounce = syncer.DefaultDebounce
	}
	c.sync, err = syncer.New(ctx, store, remote, c.tenants, c.office, cfg.Sync.Enabled,
		syncer.WithDebounce(debounce), syncer.WithLogger(logger))
	if err != nil {
		c.close()
		return nil, fmt.Errorf("init sync: %w", err)
	}

	return c, nil
}

// wireSessions ties sign-in and sign-out to sync. Each principal's
// sessions are tracked separately; the tenant follows the first signed-in
// admin through auth.Service.PrincipalID.
func (c *components) wireSessions() {
	c.auth.OnSession(func(ctx context.Context, p auth.Principal, signedIn bool) {
		if !signedIn {
			if err := c.sync.EndSession(ctx, p.ID); err != nil {
				c.logger.Warn("final cloud push failed, sync stays ready",
					slog.String("user", p.ID), slog.String("error", err.Error()))
			}
			return
		}
		if err := c.sync.StartSession(ctx, p.ID, string(p.Role)); err != nil {
			c.logger.Warn("initial cloud pull failed",
				slog.String("user", p.ID), slog.String("error", err.Error()))
		}
	})
}

// generator returns the AI generator, or nil when no key is configured.
func (c *components) generator(ctx context.Context) aiproxy.Generator {
	g, err := aiproxy.NewGemini(ctx, c.cfg.AI.APIKey, c.cfg.AI.ChatModel, c.cfg.AI.VisionModel)
	if errors.Is(err, aiproxy.ErrMissingKey) {
		c.logger.Info("AI endpoints disabled: no API key")
		return nil
	}
	if err != nil {
		c.logger.Error("AI client init failed", slog.String("error", err.Error()))
		return nil
	}
	return g
}

func (c *components) close() {
	if c.sync != nil {
		c.sync.Close()
	}
	if err := c.store.Close(); err != nil {
		c.logger.Error("storage close failed", slog.String("error", err.Error()))
	}
}
