// Package remotekv implements the tenant-scoped remote key-value table used
// for cloud sync. Each row holds one whole collection as a JSON document.
package remotekv

import (
	"context"
	"encoding/json"
	"time"

	"github.com/starford/lexdesk/internal/apperr"
)

// Default table names.
const (
	DefaultTable         = "helm_kv"
	DefaultProfilesTable = "profiles"
)

// Drivers.
const (
	DriverNone     = "none"
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
)

// Record is one row of the remote table.
type Record struct {
	TenantID  string          `json:"tenant_id"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is the remote key-value contract. Every method returns
// apperr.ErrNotConfigured when the backend credentials are absent.
type Store interface {
	// Get returns the record or nil when no row exists.
	Get(ctx context.Context, tenantID, key string) (*Record, error)
	// Set upserts on (tenant_id, key) and returns the stored row.
	Set(ctx context.Context, tenantID, key string, data json.RawMessage) (*Record, error)
	// Delete removes the row. Missing rows are not an error.
	Delete(ctx context.Context, tenantID, key string) error
	// Configured reports whether credentials are present.
	Configured() bool
}

// ProfileLookup resolves the tenant of an authenticated principal.
type ProfileLookup interface {
	// TenantForPrincipal returns the tenant_id of the profile row keyed by principalID.
	TenantForPrincipal(ctx context.Context, principalID string) (string, error)
}

// Unconfigured is the driver used when no remote backend is set up.
type Unconfigured struct{}

var (
	_ Store         = Unconfigured{}
	_ ProfileLookup = Unconfigured{}
)

// Get always fails with ErrNotConfigured.
func (Unconfigured) Get(context.Context, string, string) (*Record, error) {
	return nil, apperr.ErrNotConfigured
}

// Set always fails with ErrNotConfigured.
func (Unconfigured) Set(context.Context, string, string, json.RawMessage) (*Record, error) {
	return nil, apperr.ErrNotConfigured
}

// Delete always fails with ErrNotConfigured.
func (Unconfigured) Delete(context.Context, string, string) error {
	return apperr.ErrNotConfigured
}

// Configured returns false.
func (Unconfigured) Configured() bool { return false }

// TenantForPrincipal always fails with ErrNotConfigured.
func (Unconfigured) TenantForPrincipal(context.Context, string) (string, error) {
	return "", apperr.ErrNotConfigured
}
