package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/lexdesk/internal/auth"
)

// NewRouter creates a chi router with all API routes mounted. Every route
// except login requires a Bearer session token. d.Events, if non-nil, is
// mounted at GET /events inside the auth group.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d)
	ai := NewAIHandler(d.AI, d.Office)

	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(d.Auth))

		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.Me)

		// Reads available to every role.
		r.Group(func(r chi.Router) {
			r.Use(RequirePerm(auth.PermViewDashboard))
			r.Get("/clients", h.ListClients)
			r.Get("/cases", h.ListCases)
			r.Get("/invoices", h.ListInvoices)
			r.Get("/invoices/{id}/print", h.PrintInvoice)
			r.Get("/expenses", h.ListExpenses)
			r.Get("/config", h.GetConfig)
			r.Get("/search", h.Search)
			r.Put("/search/pending", h.StashSearch)
			r.Get("/search/pending", h.TakeSearch)
			r.Get("/reminders", h.Reminders)
			r.Get("/sync/status", h.SyncStatus)
			r.Post("/logs", h.AppendLog)
			if d.Events != nil {
				r.Get("/events", d.Events.ServeHTTP)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePerm(auth.PermManageClients))
			r.Post("/clients", h.CreateClient)
			r.Put("/clients/{id}", h.UpdateClient)
			r.Delete("/clients/{id}", h.DeleteClient)
			r.Post("/clients/{id}/whatsapp", h.ClientWhatsApp)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePerm(auth.PermManageCases))
			r.Post("/cases", h.CreateCase)
			r.Put("/cases/{id}", h.UpdateCase)
			r.Delete("/cases/{id}", h.DeleteCase)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePerm(auth.PermManageAccounting))
			r.Post("/invoices", h.CreateInvoice)
			r.Put("/invoices/{id}", h.UpdateInvoice)
			r.Delete("/invoices/{id}", h.DeleteInvoice)
			r.Post("/expenses", h.CreateExpense)
			r.Put("/expenses/{id}", h.UpdateExpense)
			r.Delete("/expenses/{id}", h.DeleteExpense)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePerm(auth.PermManageSettings))
			r.Put("/config", h.UpdateConfig)
			r.Get("/logs", h.ListLogs)
			r.Post("/sync/pull", h.SyncPull)
			r.Post("/sync/push", h.SyncPush)
			r.Put("/sync/enabled", h.SetSyncEnabled)
			r.Get("/backup", h.ExportBackup)
			r.Post("/backup/restore", h.RestoreBackup)
		})

		// HandleFunc so that other methods reach the handler and get a JSON 405.
		r.Group(func(r chi.Router) {
			r.Use(RequirePerm(auth.PermViewAI))
			r.HandleFunc("/ai/consult", ai.Consult)
			r.HandleFunc("/ai/analyze", ai.Analyze)
		})
	})

	return r
}
