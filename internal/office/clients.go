package office

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
)

// Clients returns every client, most recent first.
func (s *Service) Clients() []models.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Client(nil), s.state.Clients...)
}

// Client returns the client with id.
func (s *Service) Client(id string) (models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.state.Clients, id, func(c models.Client) string { return c.ID })
	if i < 0 {
		return models.Client{}, fmt.Errorf("office: client %s: %w", id, apperr.ErrNotFound)
	}
	return s.state.Clients[i], nil
}

// AddClient assigns an id and creation date and prepends c.
func (s *Service) AddClient(ctx context.Context, c models.Client) (models.Client, error) {
	if strings.TrimSpace(c.Name) == "" {
		return models.Client{}, fmt.Errorf("office: client name is required: %w", apperr.ErrValidation)
	}
	c.ID = s.ids.NewID()
	c.CreatedAt = s.today()
	if c.Type == "" {
		c.Type = models.ClientIndividual
	}
	c.Tags = nonNil(c.Tags)
	c.Documents = nonNil(c.Documents)

	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpCreate, Collection: models.KeyClients, ID: c.ID, Keys: []string{models.KeyClients}},
		func(st *models.State) error {
			st.Clients = append([]models.Client{c}, st.Clients...)
			return nil
		})
	if err != nil {
		return models.Client{}, err
	}
	return c, nil
}

// UpdateClient replaces the client with c.ID. A name change is copied to
// the denormalized clientName of its cases and invoices.
func (s *Service) UpdateClient(ctx context.Context, c models.Client) (models.Client, error) {
	if strings.TrimSpace(c.Name) == "" {
		return models.Client{}, fmt.Errorf("office: client name is required: %w", apperr.ErrValidation)
	}
	keys := []string{models.KeyClients, models.KeyCases, models.KeyInvoices}
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpUpdate, Collection: models.KeyClients, ID: c.ID, Keys: keys},
		func(st *models.State) error {
			i := indexOf(st.Clients, c.ID, func(x models.Client) string { return x.ID })
			if i < 0 {
				return fmt.Errorf("office: client %s: %w", c.ID, apperr.ErrNotFound)
			}
			prev := st.Clients[i]
			c.CreatedAt = prev.CreatedAt
			c.Tags = nonNil(c.Tags)
			c.Documents = nonNil(c.Documents)
			st.Clients[i] = c

			if prev.Name != c.Name {
				for j := range st.Cases {
					if st.Cases[j].ClientID == c.ID {
						st.Cases[j].ClientName = c.Name
					}
				}
				for j := range st.Invoices {
					if st.Invoices[j].ClientID == c.ID {
						st.Invoices[j].ClientName = c.Name
					}
				}
			}
			return nil
		})
	if err != nil {
		return models.Client{}, err
	}
	return c, nil
}

// DeleteClient removes the client together with its cases and invoices.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	keys := []string{models.KeyClients, models.KeyCases, models.KeyInvoices, models.KeyLogs}
	return s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpDelete, Collection: models.KeyClients, ID: id, Keys: keys},
		func(st *models.State) error {
			i := indexOf(st.Clients, id, func(c models.Client) string { return c.ID })
			if i < 0 {
				return fmt.Errorf("office: client %s: %w", id, apperr.ErrNotFound)
			}
			name := st.Clients[i].Name
			st.Clients = removeAt(st.Clients, i)
			st.Cases = filter(st.Cases, func(c models.Case) bool { return c.ClientID != id })
			st.Invoices = filter(st.Invoices, func(inv models.Invoice) bool { return inv.ClientID != id })
			s.appendLog(ctx, st, "deleted client %s (%s) with its cases and invoices", id, name)
			return nil
		})
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, it := range items {
		if key(it) == id {
			return i
		}
	}
	return -1
}

// removeAt returns items without index i. items is not modified.
func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
