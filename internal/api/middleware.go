// Package api implements the lexdesk REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/starford/lexdesk/internal/auditctx"
	"github.com/starford/lexdesk/internal/auth"
)

type principalKey struct{}

// principalFrom returns the authenticated principal set by AuthMiddleware.
func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// AuthMiddleware returns middleware that validates a Bearer session token.
// EventSource clients cannot set headers, so the token is also accepted in
// the access_token query parameter. The principal becomes the audit actor.
func AuthMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			} else {
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			p, err := tokens.Verify(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			ctx := context.WithValue(r.Context(), principalKey{}, p)
			ctx = auditctx.WithActor(ctx, auditctx.Actor{ID: p.ID, Name: p.Name, Role: string(p.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePerm rejects principals whose role lacks perm.
func RequirePerm(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			if !auth.HasPerm(p.Role, perm) {
				writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
