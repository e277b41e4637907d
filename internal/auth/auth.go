// Package auth authenticates office staff against the configured account
// list and issues signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/lexdesk/internal/apperr"
)

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = 12 * time.Hour

// Account is a configured staff login.
type Account struct {
	ID           string
	Name         string
	Title        string
	Role         Role
	PasswordHash string
}

// Principal is the authenticated user carried by a token.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Role  Role   `json:"role"`
}

// Claims is the JWT payload.
type Claims struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// SessionHook is called after every sign-in and after a principal's last
// sign-out.
type SessionHook func(ctx context.Context, p Principal, signedIn bool)

// session counts the open sign-ins of one principal. seq orders principals
// by their first sign-in.
type session struct {
	p     Principal
	count int
	seq   uint64
}

// Service verifies credentials and tracks who is signed in. Several staff
// may hold sessions at once; each principal is tracked separately.
type Service struct {
	accounts map[string]Account
	secret   []byte
	ttl      time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	seq      uint64
	hooks    []SessionHook
}

// NewService builds a Service. Account ids are matched case-insensitively.
func NewService(secret string, ttl time.Duration, accounts []Account) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &Service{
		accounts: make(map[string]Account, len(accounts)),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, a := range accounts {
		if !a.Role.Valid() {
			return nil, fmt.Errorf("auth: account %s: unknown role %q", a.ID, a.Role)
		}
		s.accounts[strings.ToLower(a.ID)] = a
	}
	return s, nil
}

// OnSession registers h for sign-in and sign-out.
func (s *Service) OnSession(h SessionHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Login checks the password and returns a signed token.
func (s *Service) Login(ctx context.Context, id, password string) (string, Principal, error) {
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return "", Principal{}, apperr.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return "", Principal{}, apperr.ErrUnauthorized
	}

	p := Principal{ID: a.ID, Name: a.Name, Title: a.Title, Role: a.Role}
	token, err := s.Issue(p)
	if err != nil {
		return "", Principal{}, err
	}

	s.mu.Lock()
	if sess, ok := s.sessions[p.ID]; ok {
		sess.count++
		sess.p = p
	} else {
		s.seq++
		s.sessions[p.ID] = &session{p: p, count: 1, seq: s.seq}
	}
	hooks := append([]SessionHook(nil), s.hooks...)
	s.mu.Unlock()
	for _, h := range hooks {
		h(ctx, p, true)
	}
	return token, p, nil
}

// Logout ends one session of p. Hooks run only when p has no session left;
// other principals are unaffected.
func (s *Service) Logout(ctx context.Context, p Principal) {
	s.mu.Lock()
	sess, ok := s.sessions[p.ID]
	if !ok {
		s.mu.Unlock()
		return
	}
	sess.count--
	if sess.count > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, p.ID)
	ended := sess.p
	hooks := append([]SessionHook(nil), s.hooks...)
	s.mu.Unlock()
	for _, h := range hooks {
		h(ctx, ended, false)
	}
}

// Issue signs a token for p.
func (s *Service) Issue(p Principal) (string, error) {
	now := s.now()
	claims := &Claims{
		Name:  p.Name,
		Title: p.Title,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its principal.
func (s *Service) Verify(token string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return Principal{}, apperr.ErrUnauthorized
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || c.Subject == "" || !c.Role.Valid() {
		return Principal{}, apperr.ErrUnauthorized
	}
	return Principal{ID: c.Subject, Name: c.Name, Title: c.Title, Role: c.Role}, nil
}

// Active returns the signed-in principals in order of first sign-in.
func (s *Service) Active() []Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	out := make([]Principal, len(list))
	for i, sess := range list {
		out[i] = sess.p
	}
	return out
}

// PrincipalID returns the principal whose profile selects the office
// tenant: the longest-signed-in admin. Other roles never select it.
func (s *Service) PrincipalID() (string, bool) {
	for _, p := range s.Active() {
		if p.Role == RoleAdmin {
			return p.ID, true
		}
	}
	return "", false
}

// HashPassword returns a bcrypt hash suitable for the accounts config.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("auth: empty password: %w", apperr.ErrValidation)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(h), nil
}
