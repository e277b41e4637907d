package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/lexdesk/internal/auth"
	"github.com/starford/lexdesk/internal/idgen"
	"github.com/starford/lexdesk/internal/remotekv"
	"github.com/starford/lexdesk/internal/storage"
)

type session struct{ id string }

func (s *session) PrincipalID() (string, bool) { return s.id, s.id != "" }

type configuredRemote struct{ remotekv.Unconfigured }

func (configuredRemote) Configured() bool { return true }

type profiles struct {
	tenants map[string]string
	calls   int
}

func (p *profiles) TenantForPrincipal(_ context.Context, id string) (string, error) {
	p.calls++
	t, ok := p.tenants[id]
	if !ok {
		return "", errors.New("profile missing")
	}
	return t, nil
}

func testStore(t *testing.T) storage.Provider {
	t.Helper()
	s, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

var clock = func() time.Time { return time.UnixMilli(1700000000000) }

func TestResolve_LocalWhenUnconfigured(t *testing.T) {
	store := testStore(t)
	r := NewResolver(store, remotekv.Unconfigured{}, remotekv.Unconfigured{}, &session{id: "u1"},
		WithIDGenerator(idgen.NewSequence("dev")), WithClock(clock))

	id, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "local_dev-1_1700000000000" {
		t.Errorf("id = %q", id)
	}

	// A fresh resolver on the same store reuses the persisted id.
	r2 := NewResolver(store, nil, nil, nil, WithIDGenerator(idgen.NewSequence("other")))
	id2, err := r2.Resolve(context.Background())
	if err != nil || id2 != id {
		t.Errorf("persisted id not reused: %q, %v", id2, err)
	}
}

func TestResolve_ProfileAndCache(t *testing.T) {
	p := &profiles{tenants: map[string]string{"u1": "tenant-a", "u2": "tenant-b"}}
	sess := &session{id: "u1"}
	r := NewResolver(testStore(t), configuredRemote{}, p, sess)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		id, err := r.Resolve(ctx)
		if err != nil || id != "tenant-a" {
			t.Fatalf("Resolve = %q, %v", id, err)
		}
	}
	if p.calls != 1 {
		t.Errorf("profile looked up %d times, want 1", p.calls)
	}

	sess.id = "u2"
	if id, _ := r.Resolve(ctx); id != "tenant-b" {
		t.Errorf("principal change should re-resolve, got %q", id)
	}
	if p.calls != 2 {
		t.Errorf("profile looked up %d times, want 2", p.calls)
	}
	r.Invalidate()
	if id, _ := r.Resolve(ctx); id != "tenant-b" || p.calls != 3 {
		t.Errorf("after Invalidate got %q with %d lookups", id, p.calls)
	}
}

func TestResolve_OtherSignInsKeepOfficeTenant(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := auth.NewService("test-secret", time.Hour, []auth.Account{
		{ID: "admin", Role: auth.RoleAdmin, PasswordHash: string(hash)},
		{ID: "acc", Role: auth.RoleAccountant, PasswordHash: string(hash)},
	})
	if err != nil {
		t.Fatal(err)
	}
	p := &profiles{tenants: map[string]string{"admin": "office-1"}}
	r := NewResolver(testStore(t), configuredRemote{}, p, sessions,
		WithIDGenerator(idgen.NewSequence("x")), WithClock(clock))

	ctx := context.Background()
	if _, _, err := sessions.Login(ctx, "admin", "pw"); err != nil {
		t.Fatal(err)
	}
	if id, _ := r.Resolve(ctx); id != "office-1" {
		t.Fatalf("admin tenant = %q", id)
	}
	_, acc, err := sessions.Login(ctx, "acc", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if id, _ := r.Resolve(ctx); id != "office-1" {
		t.Errorf("tenant after accountant sign-in = %q, want office-1", id)
	}
	sessions.Logout(ctx, acc)
	if id, _ := r.Resolve(ctx); id != "office-1" {
		t.Errorf("tenant after accountant sign-out = %q, want office-1", id)
	}
}

func TestResolve_FallbacksToLocal(t *testing.T) {
	p := &profiles{tenants: map[string]string{"blank": "  "}}
	cases := []struct {
		name    string
		session *session
	}{
		{"no session", &session{}},
		{"missing profile", &session{id: "ghost"}},
		{"empty tenant", &session{id: "blank"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(testStore(t), configuredRemote{}, p, tc.session,
				WithIDGenerator(idgen.NewSequence("x")), WithClock(clock))
			id, err := r.Resolve(context.Background())
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if id != "local_x-1_1700000000000" {
				t.Errorf("id = %q", id)
			}
		})
	}
}
