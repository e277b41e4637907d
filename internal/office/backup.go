package office

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
)

// AppName is written into exported backups.
const AppName = "lexdesk"

// ExportBackup returns the current state in the portable backup format.
func (s *Service) ExportBackup() models.Backup {
	st := s.Snapshot()
	cfg := st.Config
	return models.Backup{
		BackupVersion: models.BackupVersion,
		AppName:       AppName,
		Timestamp:     s.now().UTC(),
		Config:        &cfg,
		Clients:       nonNil(st.Clients),
		Cases:         nonNil(st.Cases),
		Invoices:      nonNil(st.Invoices),
		Expenses:      nonNil(st.Expenses),
		Logs:          nonNil(st.Logs),
	}
}

// restoreDoc mirrors models.Backup but keeps config raw so it passes through
// the default merge, and leaves absent arrays nil.
type restoreDoc struct {
	BackupVersion string             `json:"backupVersion"`
	Config        json.RawMessage    `json:"config"`
	Clients       []models.Client    `json:"clients"`
	Cases         []models.Case      `json:"cases"`
	Invoices      []models.Invoice   `json:"invoices"`
	Expenses      []models.Expense   `json:"expenses"`
	Logs          []models.SystemLog `json:"logs"`
}

// RestoreBackup replaces the collections present in raw. Missing arrays
// keep the current data. Corrupt input fails with ErrValidation and leaves
// the state untouched.
func (s *Service) RestoreBackup(ctx context.Context, raw []byte) error {
	var doc restoreDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("office: restore: %w: %v", apperr.ErrValidation, err)
	}

	var keys []string
	var cfg models.SystemConfig
	hasConfig := len(doc.Config) > 0 && string(doc.Config) != "null"
	if hasConfig {
		var err error
		if cfg, err = models.MergeSystemConfig(doc.Config); err != nil {
			return fmt.Errorf("office: restore config: %w: %v", apperr.ErrValidation, err)
		}
		keys = append(keys, models.KeyConfig)
	}
	if doc.Clients != nil {
		keys = append(keys, models.KeyClients)
	}
	if doc.Cases != nil {
		keys = append(keys, models.KeyCases)
	}
	if doc.Invoices != nil {
		keys = append(keys, models.KeyInvoices)
	}
	if doc.Expenses != nil {
		keys = append(keys, models.KeyExpenses)
	}
	if doc.Logs != nil {
		keys = append(keys, models.KeyLogs)
	}
	if len(keys) == 0 {
		return nil
	}

	err := s.mutate(ctx, ChangeEvent{Origin: OriginRestore, Op: OpReplace, Keys: keys}, func(st *models.State) error {
		if doc.Clients != nil {
			st.Clients = doc.Clients
		}
		if doc.Cases != nil {
			st.Cases = doc.Cases
		}
		if doc.Invoices != nil {
			st.Invoices = doc.Invoices
		}
		if doc.Expenses != nil {
			st.Expenses = doc.Expenses
		}
		if doc.Logs != nil {
			st.Logs = doc.Logs
		}
		if hasConfig {
			st.Config = cfg
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("office: backup restored",
		slog.Any("keys", keys),
		slog.String("version", doc.BackupVersion))
	return nil
}
