// Package tenant maps the current principal to the tenant id that namespaces
// every remote key-value operation.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/idgen"
	"github.com/starford/lexdesk/internal/remotekv"
	"github.com/starford/lexdesk/internal/storage"
)

// SessionSource reports the authenticated principal, if any.
type SessionSource interface {
	// PrincipalID returns the principal id and whether a session exists.
	PrincipalID() (string, bool)
}

// Resolver resolves and caches the tenant id.
//
// Resolution order: without a configured remote or a session the persisted
// local id is used; otherwise the principal's profile row decides, falling
// back to the local id when the lookup fails or yields nothing.
type Resolver struct {
	store    storage.Provider
	profiles remotekv.ProfileLookup
	remote   remotekv.Store
	session  SessionSource
	ids      idgen.Generator
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.Mutex
	cached    string
	cachedFor string // principal the cached id was resolved for
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIDGenerator overrides the generator used for the local id.
func WithIDGenerator(g idgen.Generator) Option {
	return func(r *Resolver) { r.ids = g }
}

// WithClock overrides the clock used for the local id.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver builds a Resolver. session may be nil for local-only runs.
func NewResolver(store storage.Provider, remote remotekv.Store, profiles remotekv.ProfileLookup, session SessionSource, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		remote:   remote,
		profiles: profiles,
		session:  session,
		ids:      idgen.Short{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the tenant id. The id is cached for the principal the
// session source reports and recomputed when that principal changes.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	principal := r.principal()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != "" && r.cachedFor == principal {
		return r.cached, nil
	}

	id, err := r.resolve(ctx, principal)
	if err != nil {
		return "", err
	}
	r.cached, r.cachedFor = id, principal
	return id, nil
}

// Invalidate drops the cached id.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached, r.cachedFor = "", ""
	r.mu.Unlock()
}

// principal returns the session principal, or "" when tenant lookup is
// not possible.
func (r *Resolver) principal() string {
	if r.remote == nil || !r.remote.Configured() || r.session == nil || r.profiles == nil {
		return ""
	}
	id, ok := r.session.PrincipalID()
	if !ok {
		return ""
	}
	return id
}

func (r *Resolver) resolve(ctx context.Context, principal string) (string, error) {
	if principal == "" {
		return r.LocalID(ctx)
	}

	tenantID, err := r.profiles.TenantForPrincipal(ctx, principal)
	if err != nil {
		r.logger.Warn("tenant: profile lookup failed, using local id",
			slog.String("principal", principal),
			slog.String("error", err.Error()))
		return r.LocalID(ctx)
	}
	if strings.TrimSpace(tenantID) == "" {
		r.logger.Warn("tenant: profile has no tenant, using local id", slog.String("principal", principal))
		return r.LocalID(ctx)
	}
	return tenantID, nil
}

// LocalID returns the persisted device-local id, creating it on first use.
func (r *Resolver) LocalID(ctx context.Context) (string, error) {
	raw, err := r.store.Get(ctx, storage.KeyLocalTenantID)
	switch {
	case err == nil && len(raw) > 0:
		return string(raw), nil
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return "", fmt.Errorf("tenant: read local id: %w", err)
	}

	id := fmt.Sprintf("local_%s_%d", r.ids.NewID(), r.now().UnixMilli())
	if err := r.store.Set(ctx, storage.KeyLocalTenantID, []byte(id)); err != nil {
		return "", fmt.Errorf("tenant: persist local id: %w", err)
	}
	return id, nil
}
