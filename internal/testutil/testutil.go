// Package testutil provides shared test helpers for setting up stores and office services.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/starford/lexdesk/internal/idgen"
	"github.com/starford/lexdesk/internal/office"
	"github.com/starford/lexdesk/internal/storage"
)

// Now is the fixed clock used by TestOffice.
var Now = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

// TestStore creates a temporary data directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestOffice creates a loaded office service over a temporary store with
// sequential ids and a fixed clock.
func TestOffice(t *testing.T) (*office.Service, storage.Provider) {
	t.Helper()
	_, store := TestStore(t)
	svc := office.NewService(store,
		office.WithIDGenerator(idgen.NewSequence("id")),
		office.WithClock(func() time.Time { return Now }))
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc, store
}
