package office

import (
	"context"
	"fmt"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
)

// Invoices returns every invoice, most recent first. A non-empty clientID filters.
func (s *Service) Invoices(clientID string) []models.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if clientID == "" {
		return append([]models.Invoice(nil), s.state.Invoices...)
	}
	return filter(s.state.Invoices, func(inv models.Invoice) bool { return inv.ClientID == clientID })
}

// Invoice returns the invoice with id.
func (s *Service) Invoice(id string) (models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.state.Invoices, id, invoiceID)
	if i < 0 {
		return models.Invoice{}, fmt.Errorf("office: invoice %s: %w", id, apperr.ErrNotFound)
	}
	return s.state.Invoices[i], nil
}

func invoiceID(inv models.Invoice) string { return inv.ID }

func prepareInvoice(st *models.State, inv *models.Invoice) error {
	if inv.Amount < 0 {
		return fmt.Errorf("office: invoice amount must not be negative: %w", apperr.ErrValidation)
	}
	ci := indexOf(st.Clients, inv.ClientID, func(c models.Client) string { return c.ID })
	if ci < 0 {
		return fmt.Errorf("office: invoice client %q: %w", inv.ClientID, apperr.ErrValidation)
	}
	if inv.ClientName == "" {
		inv.ClientName = st.Clients[ci].Name
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceUnpaid
	}
	inv.FinalAmount = inv.Total()
	return nil
}

// AddInvoice numbers the invoice from the configured scheme, advances the
// sequence and prepends the invoice. Number and sequence are saved together.
func (s *Service) AddInvoice(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	inv.ID = s.ids.NewID()
	if inv.Date == "" {
		inv.Date = s.today()
	}
	keys := []string{models.KeyInvoices, models.KeyConfig}
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpCreate, Collection: models.KeyInvoices, ID: inv.ID, Keys: keys},
		func(st *models.State) error {
			if err := prepareInvoice(st, &inv); err != nil {
				return err
			}
			f := &st.Config.InvoiceFormatting
			if f.NextSequence <= 0 {
				f.NextSequence = models.DefaultSystemConfig().InvoiceFormatting.NextSequence
			}
			inv.InvoiceNumber = f.Format()
			f.NextSequence++
			st.Invoices = append([]models.Invoice{inv}, st.Invoices...)
			return nil
		})
	if err != nil {
		return models.Invoice{}, err
	}
	return s.Invoice(inv.ID)
}

// UpdateInvoice replaces the invoice with inv.ID. The invoice number is kept
// when inv leaves it empty; the numbering sequence never moves.
func (s *Service) UpdateInvoice(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpUpdate, Collection: models.KeyInvoices, ID: inv.ID, Keys: []string{models.KeyInvoices}},
		func(st *models.State) error {
			i := indexOf(st.Invoices, inv.ID, invoiceID)
			if i < 0 {
				return fmt.Errorf("office: invoice %s: %w", inv.ID, apperr.ErrNotFound)
			}
			if err := prepareInvoice(st, &inv); err != nil {
				return err
			}
			prev := st.Invoices[i]
			if inv.InvoiceNumber == "" {
				inv.InvoiceNumber = prev.InvoiceNumber
			}
			if inv.Date == "" {
				inv.Date = prev.Date
			}
			st.Invoices[i] = inv
			return nil
		})
	if err != nil {
		return models.Invoice{}, err
	}
	return s.Invoice(inv.ID)
}

// DeleteInvoice removes the invoice.
func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	return s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpDelete, Collection: models.KeyInvoices, ID: id, Keys: []string{models.KeyInvoices, models.KeyLogs}},
		func(st *models.State) error {
			i := indexOf(st.Invoices, id, invoiceID)
			if i < 0 {
				return fmt.Errorf("office: invoice %s: %w", id, apperr.ErrNotFound)
			}
			number := st.Invoices[i].InvoiceNumber
			st.Invoices = removeAt(st.Invoices, i)
			s.appendLog(ctx, st, "deleted invoice %s (%s)", id, number)
			return nil
		})
}
