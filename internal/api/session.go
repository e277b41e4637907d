package api

import (
	"net/http"

	"github.com/starford/lexdesk/internal/apperr"
)

// Login handles POST /api/auth/login.
//
//	@Summary		Sign in with an office account
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	LoginResponse
//	@Failure		401		{object}	errResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, p, err := h.auth.Login(r.Context(), req.ID, req.Password)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: p})
}

// Logout handles POST /api/auth/logout. Only the caller's session ends.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, "logout", apperr.ErrUnauthorized)
		return
	}
	h.auth.Logout(r.Context(), p)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, "me", apperr.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
