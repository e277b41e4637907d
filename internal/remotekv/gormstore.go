package remotekv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/starford/lexdesk/internal/apperr"
)

type kvRow struct {
	TenantID  string         `gorm:"column:tenant_id;primaryKey;type:text"`
	Key       string         `gorm:"column:key;primaryKey;type:text"`
	Data      datatypes.JSON `gorm:"column:data"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

type profileRow struct {
	ID       string `gorm:"column:id;primaryKey;type:text"`
	TenantID string `gorm:"column:tenant_id;type:text"`
}

// Gorm stores rows through a gorm connection. Production uses Postgres; any
// gorm dialector works.
type Gorm struct {
	db            *gorm.DB
	table         string
	profilesTable string
}

// OpenPostgres connects to dsn and migrates the kv and profiles tables.
func OpenPostgres(dsn, table, profilesTable string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("remotekv: open postgres: %w", err)
	}
	return NewGorm(db, table, profilesTable)
}

// NewGorm wraps an open gorm connection.
func NewGorm(db *gorm.DB, table, profilesTable string) (*Gorm, error) {
	if table == "" {
		table = DefaultTable
	}
	if profilesTable == "" {
		profilesTable = DefaultProfilesTable
	}
	g := &Gorm{db: db, table: table, profilesTable: profilesTable}
	if err := db.Table(table).AutoMigrate(&kvRow{}); err != nil {
		return nil, fmt.Errorf("remotekv: migrate %s: %w", table, err)
	}
	if err := db.Table(profilesTable).AutoMigrate(&profileRow{}); err != nil {
		return nil, fmt.Errorf("remotekv: migrate %s: %w", profilesTable, err)
	}
	return g, nil
}

// Configured returns true; a Gorm store only exists once connected.
func (g *Gorm) Configured() bool { return true }

// Get returns the row or nil.
func (g *Gorm) Get(ctx context.Context, tenantID, key string) (*Record, error) {
	var row kvRow
	err := g.db.WithContext(ctx).Table(g.table).
		Where("tenant_id = ? AND key = ?", tenantID, key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("remotekv: get %s: %w", key, err)
	}
	return row.record(), nil
}

// Set upserts on (tenant_id, key).
func (g *Gorm) Set(ctx context.Context, tenantID, key string, data json.RawMessage) (*Record, error) {
	row := kvRow{
		TenantID:  tenantID,
		Key:       key,
		Data:      datatypes.JSON(data),
		UpdatedAt: time.Now().UTC(),
	}
	err := g.db.WithContext(ctx).Table(g.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("remotekv: set %s: %w", key, err)
	}
	return row.record(), nil
}

// Delete removes the row.
func (g *Gorm) Delete(ctx context.Context, tenantID, key string) error {
	err := g.db.WithContext(ctx).Table(g.table).
		Where("tenant_id = ? AND key = ?", tenantID, key).
		Delete(&kvRow{}).Error
	if err != nil {
		return fmt.Errorf("remotekv: delete %s: %w", key, err)
	}
	return nil
}

// TenantForPrincipal reads the profile row for principalID.
func (g *Gorm) TenantForPrincipal(ctx context.Context, principalID string) (string, error) {
	var p profileRow
	err := g.db.WithContext(ctx).Table(g.profilesTable).
		Where("id = ?", principalID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("remotekv: profile %s: %w", principalID, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("remotekv: profile %s: %w", principalID, err)
	}
	return p.TenantID, nil
}

// PutProfile upserts a profile row. Used by provisioning and tests.
func (g *Gorm) PutProfile(ctx context.Context, principalID, tenantID string) error {
	row := profileRow{ID: principalID, TenantID: tenantID}
	return g.db.WithContext(ctx).Table(g.profilesTable).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tenant_id"}),
	}).Create(&row).Error
}

func (r kvRow) record() *Record {
	return &Record{
		TenantID:  r.TenantID,
		Key:       r.Key,
		Data:      json.RawMessage(r.Data),
		UpdatedAt: r.UpdatedAt,
	}
}

// Open picks a driver by name.
func Open(opts Options) (Store, ProfileLookup, error) {
	switch opts.Driver {
	case "", DriverNone:
		return Unconfigured{}, Unconfigured{}, nil
	case DriverSupabase:
		s := NewSupabase(SupabaseOptions{
			URL:           opts.SupabaseURL,
			APIKey:        opts.SupabaseKey,
			Table:         opts.Table,
			ProfilesTable: opts.ProfilesTable,
		})
		return s, s, nil
	case DriverPostgres:
		if opts.PostgresDSN == "" {
			return Unconfigured{}, Unconfigured{}, nil
		}
		g, err := OpenPostgres(opts.PostgresDSN, opts.Table, opts.ProfilesTable)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	default:
		return nil, nil, fmt.Errorf("remotekv: unknown driver %q", opts.Driver)
	}
}

// Options selects and configures a driver.
type Options struct {
	Driver        string
	SupabaseURL   string
	SupabaseKey   string
	PostgresDSN   string
	Table         string
	ProfilesTable string
}
