// Package storage implements the local persistent key-value store that holds
// one JSON document per domain collection.
package storage

import (
	"context"
	"fmt"
	"regexp"
)

// Local keys beyond the six domain collections.
const (
	KeyCloudEnabled  = "cloud_enabled"
	KeyPendingSearch = "pending_search"
	KeyLocalTenantID = "local_tenant_id"
)

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverFS     = "fs"
)

// Provider is the interface for local key-value persistence.
type Provider interface {
	// Get returns the stored bytes for key or apperr.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes every entry as one batch.
	SetMany(ctx context.Context, entries map[string][]byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases underlying resources.
	Close() error
}

var keyRe = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

func validateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

// Open returns the provider for driver rooted at path.
func Open(driver, path string) (Provider, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path)
	case DriverFS:
		return NewFS(path)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
