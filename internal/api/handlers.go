package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexdesk/internal/office"
	"github.com/starford/lexdesk/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	office  *office.Service
	auth    Sessions
	sync    SyncController
	printer *render.Printer
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	p := d.Printer
	if p == nil {
		p = render.NewPrinter()
	}
	return &Handler{office: d.Office, auth: d.Auth, sync: d.Sync, printer: p}
}

// ListClients handles GET /api/clients.
//
//	@Summary		List clients
//	@Tags			clients
//	@Produce		json
//	@Success		200	{array}	models.Client
//	@Security		BearerAuth
//	@Router			/clients [get]
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.office.Clients())
}

// CreateClient handles POST /api/clients.
//
//	@Summary		Create a client
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ClientRequest	true	"Client to create"
//	@Success		201		{object}	models.Client
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/clients [post]
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.office.AddClient(r.Context(), req.model())
	if err != nil {
		writeError(w, "create client", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateClient handles PUT /api/clients/{id}.
//
//	@Summary		Replace a client
//	@Tags			clients
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Client id"
//	@Param			body	body		ClientRequest	true	"Client fields"
//	@Success		200		{object}	models.Client
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/clients/{id} [put]
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c := req.model()
	c.ID = chi.URLParam(r, "id")
	c, err := h.office.UpdateClient(r.Context(), c)
	if err != nil {
		writeError(w, "update client", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteClient handles DELETE /api/clients/{id}. Cases and invoices of the
// client are removed with it.
//
//	@Summary		Delete a client with its cases and invoices
//	@Tags			clients
//	@Param			id	path	string	true	"Client id"
//	@Success		204	"Client deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/clients/{id} [delete]
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.office.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCases handles GET /api/cases?clientId=.
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.office.Cases(r.URL.Query().Get("clientId")))
}

// CreateCase handles POST /api/cases.
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req CaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.office.AddCase(r.Context(), req.model())
	if err != nil {
		writeError(w, "create case", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCase handles PUT /api/cases/{id}.
func (h *Handler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	var req CaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c := req.model()
	c.ID = chi.URLParam(r, "id")
	c, err := h.office.UpdateCase(r.Context(), c)
	if err != nil {
		writeError(w, "update case", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCase handles DELETE /api/cases/{id}.
func (h *Handler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	if err := h.office.DeleteCase(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete case", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListInvoices handles GET /api/invoices?clientId=.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.office.Invoices(r.URL.Query().Get("clientId")))
}

// CreateInvoice handles POST /api/invoices. The invoice number is assigned
// from the office numbering settings.
//
//	@Summary		Create an invoice
//	@Tags			invoices
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InvoiceRequest	true	"Invoice to create"
//	@Success		201		{object}	models.Invoice
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/invoices [post]
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	inv := req.model()
	inv.InvoiceNumber = ""
	inv, err := h.office.AddInvoice(r.Context(), inv)
	if err != nil {
		writeError(w, "create invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// UpdateInvoice handles PUT /api/invoices/{id}.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	inv := req.model()
	inv.ID = chi.URLParam(r, "id")
	inv, err := h.office.UpdateInvoice(r.Context(), inv)
	if err != nil {
		writeError(w, "update invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// DeleteInvoice handles DELETE /api/invoices/{id}.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.office.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PrintInvoice handles GET /api/invoices/{id}/print?mode=invoice|receipt.
//
//	@Summary		Printable invoice or receipt page
//	@Tags			invoices
//	@Produce		html
//	@Param			id		path	string	true	"Invoice id"
//	@Param			mode	query	string	false	"Document"	Enums(invoice, receipt)
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/invoices/{id}/print [get]
func (h *Handler) PrintInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.office.Invoice(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "print invoice", err)
		return
	}
	page, err := h.printer.Render(render.PrintMode(r.URL.Query().Get("mode")), h.office.Config(), inv)
	if err != nil {
		writeError(w, "print invoice", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// ListExpenses handles GET /api/expenses.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.office.Expenses())
}

// CreateExpense handles POST /api/expenses. Duplicates collapse into the new record.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.office.AddExpense(r.Context(), req.model())
	if err != nil {
		writeError(w, "create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateExpense handles PUT /api/expenses/{id}.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e := req.model()
	e.ID = chi.URLParam(r, "id")
	e, err := h.office.UpdateExpense(r.Context(), e)
	if err != nil {
		writeError(w, "update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteExpense handles DELETE /api/expenses/{id}.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.office.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
