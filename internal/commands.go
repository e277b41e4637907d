package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/lexdesk/internal/mcpserver"
)

// Sync directions for SyncOnce.
const (
	SyncPull = "pull"
	SyncPush = "push"
)

// RunMCP serves the read-only MCP tools on stdin/stdout until the client
// disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	app.logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.office, c.sync).ServeStdio()
}

// ExportBackup writes the current office state as a backup document to w.
func ExportBackup(ctx context.Context, w io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.office.ExportBackup()); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

// RestoreBackup replaces the office state with the backup read from r.
// Collections missing from the backup keep their current data.
func RestoreBackup(ctx context.Context, r io.Reader, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	c, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.office.RestoreBackup(ctx, raw); err != nil {
		return err
	}
	st := c.office.Snapshot()
	app.logger.Info("backup restored",
		slog.Int("clients", len(st.Clients)),
		slog.Int("cases", len(st.Cases)),
		slog.Int("invoices", len(st.Invoices)),
		slog.Int("expenses", len(st.Expenses)))
	return nil
}

// SyncOnce runs one manual pull or push against the remote store.
func SyncOnce(ctx context.Context, direction string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	switch direction {
	case SyncPull:
		err = c.sync.Pull(ctx)
	case SyncPush:
		err = c.sync.Push(ctx)
	default:
		return fmt.Errorf("unknown sync direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("sync %s: %w", direction, err)
	}
	tenantID, _ := c.tenants.Resolve(ctx)
	app.logger.Info("sync complete", slog.String("direction", direction), slog.String("tenant", tenantID))
	return nil
}
