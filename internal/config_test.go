package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/lexdesk/pkg/config"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Auth.JWTSecret = "0123456789abcdef"
	cfg.Auth.Accounts = []AccountConfig{
		{ID: "admin", Name: "Office Admin", Role: "ADMIN", PasswordHash: "$2a$10$hash"},
	}
	return cfg
}

func TestDefaultConfig_NeedsAuth(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err == nil {
		t.Fatal("default config without secret and accounts should fail")
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}
}

func TestAuthConfig_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("short secret should fail")
	}
}

func TestAuthConfig_BadRole(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Accounts[0].Role = "JUDGE"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("unknown role should fail")
	}
	if !strings.Contains(err.Error(), `account "admin"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_DuplicateAccount(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Accounts = append(cfg.Auth.Accounts, cfg.Auth.Accounts[0])
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate account error = %v", err)
	}
}

func TestStorageConfig_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown storage driver should fail")
	}
}

func TestRemoteConfig_EmptyDriverDefaultsNone(t *testing.T) {
	cfg := validConfig()
	cfg.Remote.Driver = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty remote driver: %v", err)
	}
	if cfg.Remote.Driver != "none" {
		t.Errorf("driver = %q, want none", cfg.Remote.Driver)
	}
	cfg.Remote.Driver = "dynamo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown remote driver should fail")
	}
}

func TestLoad_YAMLWithEnv(t *testing.T) {
	t.Setenv("LEXDESK_TEST_SECRET", "a-very-long-jwt-secret")
	t.Setenv("LEXDESK_TEST_SUPABASE_KEY", "anon-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `app:
  log_level: debug
  http:
    port: 9090
storage:
  driver: fs
  path: ./data
remote:
  driver: supabase
  supabase:
    url: https://example.supabase.co
    api_key: ${LEXDESK_TEST_SUPABASE_KEY}
sync:
  enabled: true
  debounce: 3s
auth:
  jwt_secret: ${LEXDESK_TEST_SECRET}
  token_ttl: 8h
  accounts:
    - id: admin
      name: Office Admin
      role: ADMIN
      password_hash: "$2a$10$hash"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Storage.Driver != "fs" {
		t.Errorf("app/storage = %+v / %+v", cfg.App, cfg.Storage)
	}
	if cfg.Remote.Supabase.APIKey != "anon-key" {
		t.Errorf("supabase key = %q", cfg.Remote.Supabase.APIKey)
	}
	if cfg.Sync.Debounce != 3*time.Second || !cfg.Sync.Enabled {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Auth.TokenTTL != 8*time.Hour || cfg.Auth.JWTSecret != "a-very-long-jwt-secret" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if got := cfg.Auth.ServiceAccounts()[0].PasswordHash; got != "$2a$10$hash" {
		t.Errorf("password hash = %q", got)
	}
	// Untouched sections keep their defaults.
	if cfg.Remote.Table != "helm_kv" || cfg.AI.ChatModel == "" {
		t.Errorf("defaults lost: remote = %+v, ai = %+v", cfg.Remote, cfg.AI)
	}
}
