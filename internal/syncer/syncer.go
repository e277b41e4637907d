// Package syncer mirrors the office state to the remote key-value store.
//
// The orchestrator moves through three phases: Disabled, Pending (enabled,
// waiting for the first admin pull) and Ready. In Ready every local change
// schedules a debounced push. Pull and Push never overlap.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/remotekv"
	"github.com/starford/lexdesk/internal/storage"
)

// Phase is the orchestrator state.
type Phase string

const (
	PhaseDisabled Phase = "disabled"
	PhasePending  Phase = "pending"
	PhaseReady    Phase = "ready"
)

// DefaultDebounce is the quiescence delay before a background push.
const DefaultDebounce = 1500 * time.Millisecond

// backgroundTimeout bounds a debounced push.
const backgroundTimeout = 30 * time.Second

// AdminRole is the only role whose session start triggers a pull.
const AdminRole = "ADMIN"

// State is the in-memory office state the orchestrator reads and replaces.
type State interface {
	// ExportDocuments returns the JSON document of every synced key.
	ExportDocuments() (map[string]json.RawMessage, error)
	// ApplyRemote replaces the collections present in docs.
	ApplyRemote(ctx context.Context, docs map[string]json.RawMessage) error
}

// TenantResolver yields the tenant id for remote operations.
type TenantResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Syncer is the sync orchestrator.
type Syncer struct {
	local    storage.Provider
	remote   remotekv.Store
	tenants  TenantResolver
	state    State
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time

	op sync.Mutex // held for the whole of every Pull and Push

	mu       sync.Mutex
	phase    Phase
	lastPull *time.Time
	lastPush *time.Time
	lastErr  string
	timer    *time.Timer
	admins   map[string]struct{} // signed-in admin principals
	closed   bool
	inflight sync.WaitGroup
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDebounce sets the push quiescence delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithClock overrides the clock used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// New builds a Syncer. The persisted cloud_enabled flag wins over
// defaultEnabled when present.
func New(ctx context.Context, local storage.Provider, remote remotekv.Store, tenants TenantResolver, state State, defaultEnabled bool, opts ...Option) (*Syncer, error) {
	s := &Syncer{
		local:    local,
		remote:   remote,
		tenants:  tenants,
		state:    state,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		now:      time.Now,
		phase:    PhaseDisabled,
		admins:   make(map[string]struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	enabled := defaultEnabled
	raw, err := local.Get(ctx, storage.KeyCloudEnabled)
	switch {
	case err == nil:
		if v, perr := strconv.ParseBool(string(raw)); perr == nil {
			enabled = v
		} else {
			s.logger.Warn("syncer: ignoring unreadable cloud flag", slog.String("error", perr.Error()))
		}
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, fmt.Errorf("syncer: read cloud flag: %w", err)
	}
	if enabled {
		s.phase = PhasePending
	}
	return s, nil
}

// Status returns a snapshot of the sync status.
func (s *Syncer) Status() models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.SyncStatus{
		Enabled:   s.phase != PhaseDisabled,
		Phase:     string(s.phase),
		LastError: s.lastErr,
	}
	if s.lastPull != nil {
		t := *s.lastPull
		st.LastPull = &t
	}
	if s.lastPush != nil {
		t := *s.lastPush
		st.LastPush = &t
	}
	if st.LastError == "" && !s.remote.Configured() && st.Enabled {
		st.LastError = apperr.ErrNotConfigured.Error()
	}
	return st
}

// Phase returns the current phase.
func (s *Syncer) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetEnabled persists the cloud flag. Enabling moves Disabled to Pending;
// disabling cancels any scheduled push.
func (s *Syncer) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.local.Set(ctx, storage.KeyCloudEnabled, []byte(strconv.FormatBool(enabled))); err != nil {
		return fmt.Errorf("syncer: persist cloud flag: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case enabled && s.phase == PhaseDisabled:
		s.phase = PhasePending
	case !enabled:
		s.phase = PhaseDisabled
		s.stopTimerLocked()
	}
	return nil
}

// StartSession registers an admin session and performs the pull once per
// Pending phase. The phase stays Pending when the pull fails so a later
// session can retry. Other roles are ignored.
func (s *Syncer) StartSession(ctx context.Context, principalID, role string) error {
	if role != AdminRole {
		return nil
	}
	s.mu.Lock()
	s.admins[principalID] = struct{}{}
	ready := s.phase == PhasePending && s.remote.Configured()
	s.mu.Unlock()
	if !ready {
		return nil
	}

	if err := s.Pull(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.phase == PhasePending {
		s.phase = PhaseReady
	}
	s.mu.Unlock()
	s.logger.Info("syncer: session ready", slog.String("principal", principalID))
	return nil
}

// EndSession records that principalID signed out. When the last admin
// signs out in Ready, pending edits are pushed and the phase returns to Pending
// so the next admin session pulls again. A failed push keeps Ready, so the
// unpushed edits are not overwritten by that pull.
func (s *Syncer) EndSession(ctx context.Context, principalID string) error {
	s.mu.Lock()
	delete(s.admins, principalID)
	last := len(s.admins) == 0 && s.phase == PhaseReady
	if last {
		s.stopTimerLocked()
	}
	s.mu.Unlock()
	if !last {
		return nil
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	defer cancel()
	if err := s.Push(pctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.admins) == 0 && s.phase == PhaseReady {
		s.phase = PhasePending
		s.stopTimerLocked()
	}
	return nil
}

// Notify schedules a debounced push when the change came from a local
// mutation and the orchestrator is Ready. A newer call restarts the delay.
func (s *Syncer) Notify(remote bool) {
	if remote {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase != PhaseReady {
		return
	}
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.debounce, s.backgroundPush)
}

func (s *Syncer) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Syncer) backgroundPush() {
	s.mu.Lock()
	if s.closed || s.phase != PhaseReady {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()
	if err := s.Push(ctx); err != nil {
		s.logger.Warn("syncer: background push failed", slog.String("error", err.Error()))
	}
}

// Pull fetches all synced keys and replaces the local collections present
// remotely. Nothing is applied unless every fetch succeeds.
func (s *Syncer) Pull(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	err := s.pull(ctx)
	s.record(&s.lastPull, err)
	if err != nil {
		return fmt.Errorf("syncer: pull: %w", err)
	}
	s.logger.Info("syncer: pulled")
	return nil
}

func (s *Syncer) pull(ctx context.Context) error {
	if !s.remote.Configured() {
		return apperr.ErrNotConfigured
	}
	tenantID, err := s.tenants.Resolve(ctx)
	if err != nil {
		return err
	}

	records := make([]*remotekv.Record, len(models.SyncedKeys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range models.SyncedKeys {
		g.Go(func() error {
			rec, err := s.remote.Get(gctx, tenantID, key)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	docs := make(map[string]json.RawMessage, len(records))
	for i, rec := range records {
		if rec == nil || len(rec.Data) == 0 || string(rec.Data) == "null" {
			continue
		}
		docs[models.SyncedKeys[i]] = rec.Data
	}
	if len(docs) == 0 {
		return nil
	}
	return s.state.ApplyRemote(ctx, docs)
}

// Push writes every synced collection to the remote store.
func (s *Syncer) Push(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	err := s.push(ctx)
	s.record(&s.lastPush, err)
	if err != nil {
		return fmt.Errorf("syncer: push: %w", err)
	}
	s.logger.Debug("syncer: pushed")
	return nil
}

func (s *Syncer) push(ctx context.Context) error {
	if !s.remote.Configured() {
		return apperr.ErrNotConfigured
	}
	tenantID, err := s.tenants.Resolve(ctx)
	if err != nil {
		return err
	}
	docs, err := s.state.ExportDocuments()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range models.SyncedKeys {
		data, ok := docs[key]
		if !ok {
			continue
		}
		g.Go(func() error {
			if _, err := s.remote.Set(gctx, tenantID, key, data); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Syncer) record(stamp **time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
		if errors.Is(err, apperr.ErrNotConfigured) {
			s.lastErr = apperr.ErrNotConfigured.Error()
		}
		return
	}
	t := s.now()
	*stamp = &t
	s.lastErr = ""
}

// Close disarms the debounce timer and waits for an in-flight background push.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()
	s.inflight.Wait()
}
