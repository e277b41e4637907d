package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/lexdesk/internal/aiproxy"
	"github.com/starford/lexdesk/internal/office"
)

// AIHandler proxies consultant prompts and document images to the model.
type AIHandler struct {
	gen    aiproxy.Generator
	office *office.Service
}

// NewAIHandler creates an AIHandler. gen may be nil when no API key is configured.
func NewAIHandler(gen aiproxy.Generator, svc *office.Service) *AIHandler {
	return &AIHandler{gen: gen, office: svc}
}

type consultRequest struct {
	Prompt string `json:"prompt"`
}

type analyzeRequest struct {
	Base64Image string `json:"base64Image"`
	Prompt      string `json:"prompt"`
}

// ready performs the checks shared by both endpoints: method, key and feature flag.
func (a *AIHandler) ready(w http.ResponseWriter, r *http.Request, enabled func() bool) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("Method not allowed"))
		return false
	}
	if a.gen == nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("Missing GEMINI_API_KEY"))
		return false
	}
	if !enabled() {
		writeJSON(w, http.StatusForbidden, errorBody("feature disabled"))
		return false
	}
	return true
}

func decodeAI(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// Consult handles POST /api/ai/consult.
//
//	@Summary		Ask the legal consultant
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		consultRequest	true	"Prompt"
//	@Success		200		{object}	TextResponse
//	@Failure		400		{object}	errResponse
//	@Failure		405		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/consult [post]
func (a *AIHandler) Consult(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r, func() bool { return a.office.Config().Features.EnableAI }) {
		return
	}
	var req consultRequest
	if !decodeAI(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing prompt"))
		return
	}
	text, err := a.gen.Consult(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("ai consult failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Gemini request failed"))
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: text})
}

// Analyze handles POST /api/ai/analyze.
func (a *AIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if !a.ready(w, r, func() bool { return a.office.Config().Features.EnableAnalysis }) {
		return
	}
	var req analyzeRequest
	if !decodeAI(w, r, &req) {
		return
	}
	if req.Base64Image == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing base64Image"))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing prompt"))
		return
	}
	mime, data, err := aiproxy.ParseDataURL(req.Base64Image)
	if err != nil {
		writeError(w, "ai analyze", err)
		return
	}
	text, err := a.gen.Analyze(r.Context(), mime, data, req.Prompt)
	if err != nil {
		if errors.Is(err, aiproxy.ErrMissingKey) {
			writeJSON(w, http.StatusInternalServerError, errorBody("Missing GEMINI_API_KEY"))
			return
		}
		slog.Error("ai analyze failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Gemini analyze failed"))
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: text})
}
