package api

import "net/http"

// SyncStatus handles GET /api/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.Status())
}

// SyncPull handles POST /api/sync/pull. It replaces local collections with
// the remote copies regardless of the enabled flag.
//
//	@Summary		Pull the office state from the cloud
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	models.SyncStatus
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/pull [post]
func (h *Handler) SyncPull(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Pull(r.Context()); err != nil {
		writeError(w, "sync pull", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sync.Status())
}

// SyncPush handles POST /api/sync/push.
//
//	@Summary		Push the office state to the cloud
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	models.SyncStatus
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/push [post]
func (h *Handler) SyncPush(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Push(r.Context()); err != nil {
		writeError(w, "sync push", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sync.Status())
}

// SetSyncEnabled handles PUT /api/sync/enabled.
func (h *Handler) SetSyncEnabled(w http.ResponseWriter, r *http.Request) {
	var req SyncEnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.sync.SetEnabled(r.Context(), *req.Enabled); err != nil {
		writeError(w, "set sync enabled", err)
		return
	}
	writeJSON(w, http.StatusOK, h.sync.Status())
}
