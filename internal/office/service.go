// Package office holds the in-memory office state and every mutation on it.
//
// Each mutation runs under one lock: apply the change to a copy, restore
// the referential invariants, persist every touched collection in one
// batch, then swap the copy in. Listeners are called after the lock is
// released.
package office

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/checksum"
	"github.com/starford/lexdesk/internal/idgen"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/reconcile"
	"github.com/starford/lexdesk/internal/storage"
)

// CorruptSuffix names the key an unreadable collection is copied to on Load.
const CorruptSuffix = "_corrupt"

// Origin tells listeners where a change came from.
type Origin string

const (
	OriginLocal    Origin = "local"    // API, CLI or MCP mutation
	OriginRemote   Origin = "remote"   // cloud pull
	OriginRestore  Origin = "restore"  // backup restore
	OriginExternal Origin = "external" // file edited outside the process
)

// Op names the kind of change.
type Op string

const (
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpReplace Op = "replace"
)

// ChangeEvent describes one committed change.
type ChangeEvent struct {
	Origin     Origin
	Op         Op
	Collection string
	ID         string
	// Keys lists every collection written, including reconcile repairs.
	Keys []string
}

// Listener is notified after each commit.
type Listener func(ChangeEvent)

// Service is the domain mutation API.
type Service struct {
	store  storage.Provider
	ids    idgen.Generator
	now    func() time.Time
	logger *slog.Logger

	mu      sync.RWMutex
	state   models.State
	written map[string]string // key -> checksum of the bytes last persisted

	lmu       sync.RWMutex
	listeners []Listener
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator injects the id generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithClock injects the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service with an empty state. Call Load to read the store.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:   store,
		ids:     idgen.UUID{},
		now:     time.Now,
		logger:  slog.Default(),
		written: make(map[string]string),
		state:   emptyState(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func emptyState() models.State {
	return models.State{
		Clients:  []models.Client{},
		Cases:    []models.Case{},
		Invoices: []models.Invoice{},
		Expenses: []models.Expense{},
		Config:   models.DefaultSystemConfig(),
		Logs:     []models.SystemLog{},
	}
}

// Subscribe registers l for every future commit.
func (s *Service) Subscribe(l Listener) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, l)
	s.lmu.Unlock()
}

func (s *Service) emit(ev ChangeEvent) {
	s.lmu.RLock()
	ls := append([]Listener(nil), s.listeners...)
	s.lmu.RUnlock()
	for _, l := range ls {
		l(ev)
	}
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Counts summarizes collection sizes for dashboards.
type Counts struct {
	Clients        int `json:"clients"`
	Cases          int `json:"cases"`
	Invoices       int `json:"invoices"`
	UnpaidInvoices int `json:"unpaidInvoices"`
	Expenses       int `json:"expenses"`
}

// Counts returns the current collection sizes.
func (s *Service) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := Counts{
		Clients:  len(s.state.Clients),
		Cases:    len(s.state.Cases),
		Invoices: len(s.state.Invoices),
		Expenses: len(s.state.Expenses),
	}
	for _, inv := range s.state.Invoices {
		if inv.Status != models.InvoicePaid {
			c.UnpaidInvoices++
		}
	}
	return c
}

// Load reads every collection from the store. Missing keys start empty and
// unreadable ones fall back to empty or default values with a warning. The
// unreadable bytes are copied to <key>_corrupt and the original key is not
// rewritten until a mutation touches it.
func (s *Service) Load(ctx context.Context) error {
	raw := make(map[string][]byte, len(models.SyncedKeys))
	for _, key := range models.SyncedKeys {
		data, err := s.store.Get(ctx, key)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("office: load %s: %w", key, err)
		}
		raw[key] = data
	}

	next := emptyState()
	corrupt := make(map[string]bool)
	for key, data := range raw {
		if err := decodeInto(&next, key, data); err != nil {
			corrupt[key] = true
			s.logger.Warn("office: unreadable collection, starting empty",
				slog.String("key", key),
				slog.String("saved_as", key+CorruptSuffix),
				slog.String("error", err.Error()))
			if err := s.store.Set(ctx, key+CorruptSuffix, data); err != nil {
				return fmt.Errorf("office: save unreadable %s: %w", key, err)
			}
		}
	}

	s.mu.Lock()
	keys := s.normalize(&next, models.SyncedKeys)
	var repaired []string
	for _, k := range keys {
		if corrupt[k] {
			// left on disk until a mutation rewrites it
			continue
		}
		if enc, err := encodeKey(next, k); err == nil && checksum.Equal(enc, checksum.Sum(raw[k])) {
			s.written[k] = checksum.Sum(enc)
			continue
		}
		repaired = append(repaired, k)
	}
	if err := s.persist(ctx, next, repaired); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Info("office: state loaded",
		slog.Int("clients", len(next.Clients)),
		slog.Int("cases", len(next.Cases)),
		slog.Int("invoices", len(next.Invoices)),
		slog.Int("expenses", len(next.Expenses)))
	return nil
}

// mutate applies fn to a copy of the state and commits it.
func (s *Service) mutate(ctx context.Context, ev ChangeEvent, fn func(st *models.State) error) error {
	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	ev.Keys = s.normalize(&next, ev.Keys)
	if err := s.persist(ctx, next, ev.Keys); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// normalize restores the invariants on st and returns keys extended with
// every collection the repair touched.
func (s *Service) normalize(st *models.State, keys []string) []string {
	touched := make(map[string]bool, len(keys))
	for _, k := range keys {
		touched[k] = true
	}

	if touched[models.KeyClients] || touched[models.KeyCases] || touched[models.KeyInvoices] {
		out := reconcile.Reconcile(reconcile.Input{
			Clients:  st.Clients,
			Cases:    st.Cases,
			Invoices: st.Invoices,
			Now:      s.now(),
		})
		if out.Changed {
			st.Cases = out.Cases
			st.Invoices = out.Invoices
			touched[models.KeyCases] = true
			touched[models.KeyInvoices] = true
		}
	}
	if touched[models.KeyExpenses] {
		st.Expenses = reconcile.DedupExpenses(st.Expenses)
	}

	ordered := make([]string, 0, len(touched))
	for _, k := range models.SyncedKeys {
		if touched[k] {
			ordered = append(ordered, k)
		}
	}
	return ordered
}

// persist writes keys of st in one batch. Caller holds s.mu.
func (s *Service) persist(ctx context.Context, st models.State, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	batch := make(map[string][]byte, len(keys))
	for _, k := range keys {
		data, err := encodeKey(st, k)
		if err != nil {
			return fmt.Errorf("office: encode %s: %w", k, err)
		}
		batch[k] = data
	}
	if err := s.store.SetMany(ctx, batch); err != nil {
		return fmt.Errorf("office: persist: %w", err)
	}
	for k, data := range batch {
		s.written[k] = checksum.Sum(data)
	}
	return nil
}

func encodeKey(st models.State, key string) ([]byte, error) {
	switch key {
	case models.KeyClients:
		return json.Marshal(nonNil(st.Clients))
	case models.KeyCases:
		return json.Marshal(nonNil(st.Cases))
	case models.KeyInvoices:
		return json.Marshal(nonNil(st.Invoices))
	case models.KeyExpenses:
		return json.Marshal(nonNil(st.Expenses))
	case models.KeyConfig:
		return json.Marshal(st.Config)
	case models.KeyLogs:
		return json.Marshal(nonNil(st.Logs))
	}
	return nil, fmt.Errorf("unknown key %q", key)
}

// decodeInto replaces the collection for key. On error st is left as it was.
func decodeInto(st *models.State, key string, data []byte) error {
	var err error
	switch key {
	case models.KeyClients:
		err = decodeSlice(data, &st.Clients)
	case models.KeyCases:
		err = decodeSlice(data, &st.Cases)
	case models.KeyInvoices:
		err = decodeSlice(data, &st.Invoices)
	case models.KeyExpenses:
		err = decodeSlice(data, &st.Expenses)
	case models.KeyLogs:
		err = decodeSlice(data, &st.Logs)
	case models.KeyConfig:
		var cfg models.SystemConfig
		cfg, err = models.MergeSystemConfig(data)
		if err == nil {
			st.Config = cfg
		}
	default:
		err = fmt.Errorf("unknown key %q", key)
	}
	return err
}

func decodeSlice[T any](data []byte, dst *[]T) error {
	var v []T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = nonNil(v)
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ExportDocuments returns the JSON document of every synced collection.
func (s *Service) ExportDocuments() (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make(map[string]json.RawMessage, len(models.SyncedKeys))
	for _, k := range models.SyncedKeys {
		data, err := encodeKey(s.state, k)
		if err != nil {
			return nil, fmt.Errorf("office: encode %s: %w", k, err)
		}
		docs[k] = data
	}
	return docs, nil
}

// ApplyRemote replaces every collection present in docs. Nothing is
// applied when any document fails to decode.
func (s *Service) ApplyRemote(ctx context.Context, docs map[string]json.RawMessage) error {
	keys := make([]string, 0, len(docs))
	for _, k := range models.SyncedKeys {
		if _, ok := docs[k]; ok {
			keys = append(keys, k)
		}
	}
	return s.mutate(ctx, ChangeEvent{Origin: OriginRemote, Op: OpReplace, Keys: keys}, func(st *models.State) error {
		for _, k := range keys {
			if err := decodeInto(st, k, docs[k]); err != nil {
				return fmt.Errorf("office: remote %s: %w: %v", k, apperr.ErrValidation, err)
			}
		}
		return nil
	})
}

// ReloadKeys re-reads keys changed outside the process. Keys whose bytes
// match what this service last wrote are skipped.
func (s *Service) ReloadKeys(ctx context.Context, keys []string) error {
	fresh := make(map[string][]byte)
	s.mu.RLock()
	for _, k := range keys {
		if !isSyncedKey(k) {
			continue
		}
		data, err := s.store.Get(ctx, k)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			s.mu.RUnlock()
			return fmt.Errorf("office: reload %s: %w", k, err)
		}
		if checksum.Equal(data, s.written[k]) {
			continue
		}
		fresh[k] = data
	}
	s.mu.RUnlock()
	if len(fresh) == 0 {
		return nil
	}

	var changed []string
	scratch := emptyState()
	for _, k := range models.SyncedKeys {
		data, ok := fresh[k]
		if !ok {
			continue
		}
		if err := decodeInto(&scratch, k, data); err != nil {
			s.logger.Warn("office: ignoring unreadable external edit",
				slog.String("key", k),
				slog.String("error", err.Error()))
			continue
		}
		changed = append(changed, k)
	}
	if len(changed) == 0 {
		return nil
	}

	s.logger.Info("office: reloading externally changed collections", slog.Any("keys", changed))
	return s.mutate(ctx, ChangeEvent{Origin: OriginExternal, Op: OpReplace, Keys: changed}, func(st *models.State) error {
		for _, k := range changed {
			if err := decodeInto(st, k, fresh[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func isSyncedKey(k string) bool {
	for _, sk := range models.SyncedKeys {
		if sk == k {
			return true
		}
	}
	return false
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}
