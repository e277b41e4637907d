package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lexdesk/internal/aiproxy"
	"github.com/starford/lexdesk/internal/auth"
	"github.com/starford/lexdesk/internal/remotekv"
	"github.com/starford/lexdesk/internal/storage"
	"github.com/starford/lexdesk/internal/syncer"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Remote  RemoteConfig      `yaml:"remote"`
	Sync    SyncConfig        `yaml:"sync"`
	Auth    AuthConfig        `yaml:"auth"`
	AI      AIConfig          `yaml:"ai"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects the local store. For the sqlite driver Path is the
// database file; for the fs driver it is the data directory.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(storage.DriverSQLite, storage.DriverFS)),
		validation.Field(&c.Path, validation.Required),
	)
}

// SupabaseConfig holds PostgREST credentials.
type SupabaseConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// PostgresConfig holds a direct database connection string.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RemoteConfig selects the cloud key-value backend. Missing credentials are
// not an error: sync then reports the store as not configured.
type RemoteConfig struct {
	Driver        string         `yaml:"driver"`
	Supabase      SupabaseConfig `yaml:"supabase"`
	Postgres      PostgresConfig `yaml:"postgres"`
	Table         string         `yaml:"table"`
	ProfilesTable string         `yaml:"profiles_table"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = remotekv.DriverNone
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(remotekv.DriverNone, remotekv.DriverSupabase, remotekv.DriverPostgres)),
	)
}

// Options converts c into remotekv options.
func (c *RemoteConfig) Options() remotekv.Options {
	return remotekv.Options{
		Driver:        c.Driver,
		SupabaseURL:   c.Supabase.URL,
		SupabaseKey:   c.Supabase.APIKey,
		PostgresDSN:   c.Postgres.DSN,
		Table:         c.Table,
		ProfilesTable: c.ProfilesTable,
	}
}

// SyncConfig holds cloud sync behaviour. Enabled is the default used until
// the user toggles sync; the toggle is persisted locally.
type SyncConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// AccountConfig is one staff login.
type AccountConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Title        string `yaml:"title"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

func (c AccountConfig) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Role, validation.Required, validation.In(string(auth.RoleAdmin), string(auth.RoleAssistant), string(auth.RoleAccountant))),
		validation.Field(&c.PasswordHash, validation.Required),
	)
}

// AuthConfig holds session token settings and the staff accounts.
type AuthConfig struct {
	JWTSecret string          `yaml:"jwt_secret"`
	TokenTTL  time.Duration   `yaml:"token_ttl"`
	Accounts  []AccountConfig `yaml:"accounts"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Accounts, validation.Required),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if err := a.validate(); err != nil {
			return fmt.Errorf("auth: account %q: %w", a.ID, err)
		}
		if seen[a.ID] {
			return fmt.Errorf("auth: duplicate account %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// ServiceAccounts converts the configured accounts.
func (c *AuthConfig) ServiceAccounts() []auth.Account {
	out := make([]auth.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		out = append(out, auth.Account{
			ID:           a.ID,
			Name:         a.Name,
			Title:        a.Title,
			Role:         auth.Role(a.Role),
			PasswordHash: a.PasswordHash,
		})
	}
	return out
}

// AIConfig holds the generative model settings. An empty APIKey disables
// the AI endpoints.
type AIConfig struct {
	APIKey      string `yaml:"api_key"`
	ChatModel   string `yaml:"chat_model"`
	VisionModel string `yaml:"vision_model"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver: storage.DriverSQLite,
			Path:   "./lexdesk.db",
		},
		Remote: RemoteConfig{
			Driver:        remotekv.DriverNone,
			Table:         remotekv.DefaultTable,
			ProfilesTable: remotekv.DefaultProfilesTable,
		},
		Sync: SyncConfig{
			Debounce: syncer.DefaultDebounce,
		},
		Auth: AuthConfig{
			TokenTTL: auth.DefaultTokenTTL,
		},
		AI: AIConfig{
			ChatModel:   aiproxy.DefaultChatModel,
			VisionModel: aiproxy.DefaultVisionModel,
		},
	}
}
