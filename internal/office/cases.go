package office

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
)

// Cases returns every case, most recent first. A non-empty clientID filters.
func (s *Service) Cases(clientID string) []models.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if clientID == "" {
		return append([]models.Case(nil), s.state.Cases...)
	}
	return filter(s.state.Cases, func(c models.Case) bool { return c.ClientID == clientID })
}

// Case returns the case with id.
func (s *Service) Case(id string) (models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.state.Cases, id, caseID)
	if i < 0 {
		return models.Case{}, fmt.Errorf("office: case %s: %w", id, apperr.ErrNotFound)
	}
	return s.state.Cases[i], nil
}

func caseID(c models.Case) string { return c.ID }

// CaseNumberTaken reports whether number is used by a case other than exceptID.
func (s *Service) CaseNumberTaken(number, exceptID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return caseNumberTaken(s.state.Cases, number, exceptID)
}

func caseNumberTaken(cases []models.Case, number, exceptID string) bool {
	n := strings.TrimSpace(number)
	if n == "" {
		return false
	}
	for _, c := range cases {
		if c.ID != exceptID && strings.EqualFold(strings.TrimSpace(c.CaseNumber), n) {
			return true
		}
	}
	return false
}

func (s *Service) prepareCase(st *models.State, c *models.Case) error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("office: case title is required: %w", apperr.ErrValidation)
	}
	ci := indexOf(st.Clients, c.ClientID, func(cl models.Client) string { return cl.ID })
	if ci < 0 {
		return fmt.Errorf("office: case client %q: %w", c.ClientID, apperr.ErrValidation)
	}
	if caseNumberTaken(st.Cases, c.CaseNumber, c.ID) {
		return fmt.Errorf("office: case number %q: %w", c.CaseNumber, apperr.ErrAlreadyExists)
	}
	c.CaseNumber = strings.TrimSpace(c.CaseNumber)
	c.ClientName = st.Clients[ci].Name
	if c.Status == "" {
		c.Status = models.CaseActive
	}
	c.Documents = nonNil(c.Documents)
	return nil
}

// AddCase assigns an id and creation date and prepends c. The case number
// must be unique and the client must exist.
func (s *Service) AddCase(ctx context.Context, c models.Case) (models.Case, error) {
	c.ID = s.ids.NewID()
	c.CreatedAt = s.today()
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpCreate, Collection: models.KeyCases, ID: c.ID, Keys: []string{models.KeyCases}},
		func(st *models.State) error {
			if err := s.prepareCase(st, &c); err != nil {
				return err
			}
			st.Cases = append([]models.Case{c}, st.Cases...)
			return nil
		})
	if err != nil {
		return models.Case{}, err
	}
	return c, nil
}

// UpdateCase replaces the case with c.ID. A title change is copied to the
// invoices that reference it.
func (s *Service) UpdateCase(ctx context.Context, c models.Case) (models.Case, error) {
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpUpdate, Collection: models.KeyCases, ID: c.ID, Keys: []string{models.KeyCases, models.KeyInvoices}},
		func(st *models.State) error {
			i := indexOf(st.Cases, c.ID, caseID)
			if i < 0 {
				return fmt.Errorf("office: case %s: %w", c.ID, apperr.ErrNotFound)
			}
			if err := s.prepareCase(st, &c); err != nil {
				return err
			}
			prev := st.Cases[i]
			c.CreatedAt = prev.CreatedAt
			st.Cases[i] = c
			if prev.Title != c.Title {
				for j := range st.Invoices {
					if st.Invoices[j].CaseID == c.ID {
						st.Invoices[j].CaseTitle = c.Title
					}
				}
			}
			return nil
		})
	if err != nil {
		return models.Case{}, err
	}
	return c, nil
}

// DeleteCase removes the case. Its invoices stay and are relinked to
// another case of the same client.
func (s *Service) DeleteCase(ctx context.Context, id string) error {
	return s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpDelete, Collection: models.KeyCases, ID: id, Keys: []string{models.KeyCases, models.KeyLogs}},
		func(st *models.State) error {
			i := indexOf(st.Cases, id, caseID)
			if i < 0 {
				return fmt.Errorf("office: case %s: %w", id, apperr.ErrNotFound)
			}
			number := st.Cases[i].CaseNumber
			st.Cases = removeAt(st.Cases, i)
			s.appendLog(ctx, st, "deleted case %s (%s)", id, number)
			return nil
		})
}
