package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/office"
	"github.com/starford/lexdesk/internal/render"
)

// GetConfig handles GET /api/config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.office.Config())
}

// UpdateConfig handles PUT /api/config. Cleared fields fall back to defaults.
//
//	@Summary		Replace the office settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.SystemConfig	true	"Settings"
//	@Success		200		{object}	models.SystemConfig
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/config [put]
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.SystemConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	cfg, err := h.office.UpdateConfig(r.Context(), cfg)
	if err != nil {
		writeError(w, "update config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// ListLogs handles GET /api/logs.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.office.Logs())
}

// AppendLog handles POST /api/logs.
func (h *Handler) AppendLog(w http.ResponseWriter, r *http.Request) {
	var req AppendLogRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.office.AppendLog(r.Context(), req.Action); err != nil {
		writeError(w, "append log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search clients, cases, invoices and expenses
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	office.SearchResults
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.office.Search(q))
}

// StashSearch handles PUT /api/search/pending.
func (h *Handler) StashSearch(w http.ResponseWriter, r *http.Request) {
	var req PendingSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.office.StashSearch(r.Context(), req.Query); err != nil {
		writeError(w, "stash search", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TakeSearch handles GET /api/search/pending. The query is returned once.
func (h *Handler) TakeSearch(w http.ResponseWriter, r *http.Request) {
	q, err := h.office.TakeSearch(r.Context())
	if err != nil {
		writeError(w, "take search", err)
		return
	}
	writeJSON(w, http.StatusOK, PendingSearchResponse{Query: q})
}

// Reminders handles GET /api/reminders?from=&to=.
func (h *Handler) Reminders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := office.ReminderFilter{From: q.Get("from"), To: q.Get("to")}
	for _, v := range []string{f.From, f.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("from and to must be YYYY-MM-DD dates"))
			return
		}
	}
	writeJSON(w, http.StatusOK, h.office.Reminders(f))
}

// ExportBackup handles GET /api/backup.
//
//	@Summary		Download a full backup
//	@Tags			backup
//	@Produce		json
//	@Success		200	{object}	models.Backup
//	@Security		BearerAuth
//	@Router			/backup [get]
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	b := h.office.ExportBackup()
	name := "lexdesk-backup-" + b.Timestamp.Format(models.DateLayout) + ".json"
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	writeJSON(w, http.StatusOK, b)
}

// RestoreBackup handles POST /api/backup/restore. Collections missing from
// the body keep their current data.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if err := h.office.RestoreBackup(r.Context(), raw); err != nil {
		writeError(w, "restore backup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClientWhatsApp handles POST /api/clients/{id}/whatsapp.
//
//	@Summary		Build a WhatsApp link for a client
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Client id"
//	@Param			body	body		WhatsAppRequest	true	"Message kind"
//	@Success		200		{object}	WhatsAppResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/clients/{id}/whatsapp [post]
func (h *Handler) ClientWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req WhatsAppRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cfg := h.office.Config()
	if !cfg.Features.EnableWhatsApp {
		writeError(w, "whatsapp", apperr.ErrForbidden)
		return
	}
	client, err := h.office.Client(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "whatsapp", err)
		return
	}

	var msg string
	if req.Kind == "invoice" {
		inv, err := h.office.Invoice(req.InvoiceID)
		if err != nil {
			writeError(w, "whatsapp", err)
			return
		}
		if inv.ClientID != client.ID {
			writeJSON(w, http.StatusBadRequest, errorBody("invoice belongs to another client"))
			return
		}
		msg = render.InvoiceMessage(cfg, client, inv)
	} else {
		msg, err = render.ClientMessage(render.MessageKind(req.Kind), cfg, client, h.office.Cases(client.ID), h.office.Invoices(client.ID))
		if err != nil {
			writeError(w, "whatsapp", err)
			return
		}
	}

	link, err := render.WhatsAppURL(client.Phone, msg)
	if err != nil {
		writeError(w, "whatsapp", err)
		return
	}
	writeJSON(w, http.StatusOK, WhatsAppResponse{URL: link, Message: msg})
}
