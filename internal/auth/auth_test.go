package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/starford/lexdesk/internal/apperr"
)

func testService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService("test-secret", time.Hour, []Account{
		{ID: "admin", Name: "Office Admin", Role: RoleAdmin, PasswordHash: string(hash)},
		{ID: "acc", Name: "Accountant", Role: RoleAccountant, PasswordHash: string(hash)},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginVerify(t *testing.T) {
	svc := testService(t)
	token, p, err := svc.Login(context.Background(), " Admin ", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if p.Role != RoleAdmin || p.ID != "admin" {
		t.Errorf("principal = %+v", p)
	}
	got, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != p {
		t.Errorf("Verify = %+v, want %+v", got, p)
	}
	if id, ok := svc.PrincipalID(); !ok || id != "admin" {
		t.Errorf("PrincipalID = %q, %v", id, ok)
	}
}

func TestLogin_Rejects(t *testing.T) {
	svc := testService(t)
	for _, tc := range []struct{ id, pw string }{
		{"admin", "wrong"},
		{"ghost", "s3cret"},
		{"", ""},
	} {
		if _, _, err := svc.Login(context.Background(), tc.id, tc.pw); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("Login(%q, %q) = %v", tc.id, tc.pw, err)
		}
	}
	if active := svc.Active(); len(active) != 0 {
		t.Errorf("failed logins must not open a session, active = %+v", active)
	}
}

func TestVerify_Expired(t *testing.T) {
	svc := testService(t)
	token, err := svc.Issue(Principal{ID: "admin", Name: "A", Role: RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.Verify(token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	svc := testService(t)
	other, _ := NewService("other", time.Hour, nil)
	token, _ := other.Issue(Principal{ID: "admin", Role: RoleAdmin})
	if _, err := svc.Verify(token); err == nil {
		t.Fatal("token signed with another secret must fail")
	}
}

func TestSessionHooks(t *testing.T) {
	svc := testService(t)
	var events []bool
	svc.OnSession(func(_ context.Context, p Principal, in bool) { events = append(events, in) })

	_, acc, err := svc.Login(context.Background(), "acc", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	svc.Logout(context.Background(), acc)
	svc.Logout(context.Background(), acc)

	if len(events) != 2 || !events[0] || events[1] {
		t.Errorf("events = %v", events)
	}
}

func TestLogout_OnlyEndsCallerSession(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	var ended []string
	svc.OnSession(func(_ context.Context, p Principal, in bool) {
		if !in {
			ended = append(ended, p.ID)
		}
	})

	_, admin, err := svc.Login(ctx, "admin", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	_, acc, err := svc.Login(ctx, "acc", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	svc.Logout(ctx, acc)

	if len(ended) != 1 || ended[0] != "acc" {
		t.Errorf("ended = %v, want [acc]", ended)
	}
	active := svc.Active()
	if len(active) != 1 || active[0] != admin {
		t.Errorf("active = %+v, want only admin", active)
	}
}

func TestLogout_CountsRepeatedSignIns(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	var signOuts int
	svc.OnSession(func(_ context.Context, _ Principal, in bool) {
		if !in {
			signOuts++
		}
	})

	var admin Principal
	for i := 0; i < 2; i++ {
		_, p, err := svc.Login(ctx, "admin", "s3cret")
		if err != nil {
			t.Fatal(err)
		}
		admin = p
	}
	svc.Logout(ctx, admin)
	if signOuts != 0 {
		t.Fatal("admin still holds a second session")
	}
	svc.Logout(ctx, admin)
	if signOuts != 1 {
		t.Errorf("signOuts = %d, want 1", signOuts)
	}
}

func TestPrincipalID_StaysWithFirstAdmin(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	if _, ok := svc.PrincipalID(); ok {
		t.Fatal("no session yet")
	}
	if _, _, err := svc.Login(ctx, "admin", "s3cret"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Login(ctx, "acc", "s3cret"); err != nil {
		t.Fatal(err)
	}
	if id, ok := svc.PrincipalID(); !ok || id != "admin" {
		t.Errorf("PrincipalID after accountant sign-in = %q, %v; want admin", id, ok)
	}
}

func TestHasPerm(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermManageSettings, true},
		{RoleAssistant, PermManageSettings, false},
		{RoleAssistant, PermViewAI, true},
		{RoleAccountant, PermManageAccounting, true},
		{RoleAccountant, PermManageCases, false},
		{Role("GUEST"), PermViewDashboard, false},
	}
	for _, tc := range cases {
		if got := HasPerm(tc.role, tc.perm); got != tc.want {
			t.Errorf("HasPerm(%s, %s) = %v", tc.role, tc.perm, got)
		}
	}
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService("", 0, nil); err == nil {
		t.Error("empty secret must fail")
	}
	if _, err := NewService("x", 0, []Account{{ID: "a", Role: "BOSS"}}); err == nil {
		t.Error("unknown role must fail")
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("pw")) != nil {
		t.Error("hash does not verify")
	}
}
