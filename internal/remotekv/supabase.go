package remotekv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/lexdesk/internal/apperr"
)

/*
Supabase talks to the PostgREST endpoint of a Supabase project.

Authorization: the api key is sent both as `apikey` and as a Bearer token.
Row-level security on the table decides what the key may touch; a denied
request comes back as a 401/403 and is reported as a plain error.
*/
type Supabase struct {
	baseURL       string // e.g. https://<project>.supabase.co
	apiKey        string
	table         string
	profilesTable string
	client        *http.Client
}

// SupabaseOptions configures the Supabase driver.
type SupabaseOptions struct {
	URL           string
	APIKey        string
	Table         string
	ProfilesTable string
	Timeout       time.Duration
}

// NewSupabase builds the driver. Missing URL or key yields a driver whose
// methods fail with ErrNotConfigured.
func NewSupabase(opts SupabaseOptions) *Supabase {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if opts.ProfilesTable == "" {
		opts.ProfilesTable = DefaultProfilesTable
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Supabase{
		baseURL:       strings.TrimRight(opts.URL, "/"),
		apiKey:        opts.APIKey,
		table:         opts.Table,
		profilesTable: opts.ProfilesTable,
		client:        &http.Client{Timeout: opts.Timeout},
	}
}

// Configured reports whether URL and key are present.
func (s *Supabase) Configured() bool {
	return s.baseURL != "" && s.apiKey != ""
}

func (s *Supabase) endpoint(table string, q url.Values) string {
	return fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, table, q.Encode())
}

func (s *Supabase) do(ctx context.Context, method, u string, body any, prefer string) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("supabase %s %s: %s | %s", method, table(u), res.Status, string(data))
	}
	return data, nil
}

func table(u string) string {
	if p, err := url.Parse(u); err == nil {
		return p.Path
	}
	return u
}

func decodeRows(data []byte) ([]Record, error) {
	var rows []Record
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("supabase: decode rows: %w", err)
	}
	return rows, nil
}

// Get selects the row for (tenantID, key).
// GET /rest/v1/{table}?tenant_id=eq.X&key=eq.Y&select=tenant_id,key,data,updated_at
func (s *Supabase) Get(ctx context.Context, tenantID, key string) (*Record, error) {
	if !s.Configured() {
		return nil, apperr.ErrNotConfigured
	}
	q := url.Values{}
	q.Set("select", "tenant_id,key,data,updated_at")
	q.Set("tenant_id", "eq."+tenantID)
	q.Set("key", "eq."+key)

	data, err := s.do(ctx, http.MethodGet, s.endpoint(s.table, q), nil, "")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Set upserts the row and returns the stored representation.
// POST /rest/v1/{table}?on_conflict=tenant_id,key
func (s *Supabase) Set(ctx context.Context, tenantID, key string, value json.RawMessage) (*Record, error) {
	if !s.Configured() {
		return nil, apperr.ErrNotConfigured
	}
	q := url.Values{}
	q.Set("on_conflict", "tenant_id,key")
	q.Set("select", "tenant_id,key,data,updated_at")

	// updated_at is assigned by the database.
	payload := map[string]any{
		"tenant_id": tenantID,
		"key":       key,
		"data":      value,
	}
	data, err := s.do(ctx, http.MethodPost, s.endpoint(s.table, q), payload,
		"resolution=merge-duplicates,return=representation")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("supabase: upsert %s returned no row", key)
	}
	return &rows[0], nil
}

// Delete removes the row for (tenantID, key).
func (s *Supabase) Delete(ctx context.Context, tenantID, key string) error {
	if !s.Configured() {
		return apperr.ErrNotConfigured
	}
	q := url.Values{}
	q.Set("tenant_id", "eq."+tenantID)
	q.Set("key", "eq."+key)
	_, err := s.do(ctx, http.MethodDelete, s.endpoint(s.table, q), nil, "")
	return err
}

// TenantForPrincipal reads profiles.tenant_id for the principal.
func (s *Supabase) TenantForPrincipal(ctx context.Context, principalID string) (string, error) {
	if !s.Configured() {
		return "", apperr.ErrNotConfigured
	}
	q := url.Values{}
	q.Set("select", "tenant_id")
	q.Set("id", "eq."+principalID)

	data, err := s.do(ctx, http.MethodGet, s.endpoint(s.profilesTable, q), nil, "")
	if err != nil {
		return "", err
	}
	var rows []struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return "", fmt.Errorf("supabase: decode profile: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("supabase: profile %s: %w", principalID, apperr.ErrNotFound)
	}
	return rows[0].TenantID, nil
}
