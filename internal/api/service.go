package api

import (
	"context"
	"net/http"

	"github.com/starford/lexdesk/internal/aiproxy"
	"github.com/starford/lexdesk/internal/auth"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/office"
	"github.com/starford/lexdesk/internal/render"
)

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Sessions signs staff in and out.
type Sessions interface {
	TokenVerifier
	Login(ctx context.Context, id, password string) (string, auth.Principal, error)
	Logout(ctx context.Context, p auth.Principal)
}

// SyncController drives cloud sync on demand.
type SyncController interface {
	Status() models.SyncStatus
	Pull(ctx context.Context) error
	Push(ctx context.Context) error
	SetEnabled(ctx context.Context, enabled bool) error
}

// Deps are the collaborators the API is built from. AI and Events may be nil:
// AI calls then fail with a missing-key error and the event stream is not mounted.
type Deps struct {
	Office  *office.Service
	Auth    Sessions
	Sync    SyncController
	AI      aiproxy.Generator
	Printer *render.Printer
	Events  http.Handler
}
