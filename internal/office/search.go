package office

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/storage"
)

// SearchLimit caps the hits returned per collection.
const SearchLimit = 10

// SearchResults groups global search hits by collection.
type SearchResults struct {
	Query    string           `json:"query"`
	Clients  []models.Client  `json:"clients"`
	Cases    []models.Case    `json:"cases"`
	Invoices []models.Invoice `json:"invoices"`
	Expenses []models.Expense `json:"expenses"`
}

// Total returns the number of hits across all groups.
func (r SearchResults) Total() int {
	return len(r.Clients) + len(r.Cases) + len(r.Invoices) + len(r.Expenses)
}

func norm(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

// Search matches q case-insensitively as a substring of the listed fields.
// An empty query returns empty groups.
func (s *Service) Search(q string) SearchResults {
	query := norm(q)
	res := SearchResults{
		Query:    query,
		Clients:  []models.Client{},
		Cases:    []models.Case{},
		Invoices: []models.Invoice{},
		Expenses: []models.Expense{},
	}
	if query == "" {
		return res
	}
	match := func(fields ...string) bool {
		for _, f := range fields {
			if f != "" && strings.Contains(norm(f), query) {
				return true
			}
		}
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.state.Clients {
		if len(res.Clients) == SearchLimit {
			break
		}
		if match(c.Name, c.Phone, c.EmiratesID, c.Email) {
			res.Clients = append(res.Clients, c)
		}
	}
	for _, c := range s.state.Cases {
		if len(res.Cases) == SearchLimit {
			break
		}
		if match(c.CaseNumber, c.Title, c.ClientName, c.OpponentName, string(c.Court), string(c.Status)) {
			res.Cases = append(res.Cases, c)
		}
	}
	for _, inv := range s.state.Invoices {
		if len(res.Invoices) == SearchLimit {
			break
		}
		if match(inv.InvoiceNumber, inv.ClientName, inv.CaseTitle, string(inv.Status), inv.Description) {
			res.Invoices = append(res.Invoices, inv)
		}
	}
	for _, e := range s.state.Expenses {
		if len(res.Expenses) == SearchLimit {
			break
		}
		if match(e.Category, e.Description, string(e.Status)) {
			res.Expenses = append(res.Expenses, e)
		}
	}
	return res
}

// StashSearch saves q for the next TakeSearch.
func (s *Service) StashSearch(ctx context.Context, q string) error {
	if err := s.store.Set(ctx, storage.KeyPendingSearch, []byte(q)); err != nil {
		return fmt.Errorf("office: stash search: %w", err)
	}
	return nil
}

// TakeSearch returns the stashed query and deletes it. It returns "" when
// nothing is stashed.
func (s *Service) TakeSearch(ctx context.Context) (string, error) {
	data, err := s.store.Get(ctx, storage.KeyPendingSearch)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("office: take search: %w", err)
	}
	if err := s.store.Delete(ctx, storage.KeyPendingSearch); err != nil {
		return "", fmt.Errorf("office: take search: %w", err)
	}
	return string(data), nil
}
