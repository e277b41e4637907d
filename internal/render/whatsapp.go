package render

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
)

// MessageKind selects a client message template.
type MessageKind string

const (
	MessagePayment MessageKind = "payment"
	MessageSession MessageKind = "session"
	MessageGeneral MessageKind = "general"
)

// WhatsAppURL builds a wa.me link. Non-digits are stripped from phone.
func WhatsAppURL(phone, message string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return "", fmt.Errorf("render: phone number is missing: %w", apperr.ErrValidation)
	}
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text, nil
}

func officeTokens(cfg models.SystemConfig) map[string]string {
	return map[string]string{
		"officeName":    cfg.OfficeName,
		"officePhone":   cfg.OfficePhone,
		"officeEmail":   cfg.OfficeEmail,
		"officeWebsite": cfg.OfficeWebsite,
	}
}

// ClientMessage fills the client template for kind. Payment reminders sum
// the client's unpaid invoices; session reminders use the earliest hearing.
func ClientMessage(kind MessageKind, cfg models.SystemConfig, client models.Client, cases []models.Case, invoices []models.Invoice) (string, error) {
	tokens := officeTokens(cfg)
	tokens["clientName"] = client.Name

	var tpl string
	switch kind {
	case MessagePayment:
		var due float64
		for _, inv := range invoices {
			if inv.ClientID == client.ID && inv.Status != models.InvoicePaid {
				due += inv.Amount
			}
		}
		tokens["due"] = Amount(due)
		tpl = cfg.SmartTemplates.WhatsAppPaymentReminder
	case MessageSession:
		var upcoming []models.Case
		for _, c := range cases {
			if c.ClientID == client.ID && c.NextHearingDate != "" {
				upcoming = append(upcoming, c)
			}
		}
		sort.SliceStable(upcoming, func(i, j int) bool {
			return upcoming[i].NextHearingDate < upcoming[j].NextHearingDate
		})
		if len(upcoming) > 0 {
			next := upcoming[0]
			tokens["caseNumber"] = next.CaseNumber
			tokens["caseTitle"] = next.Title
			tokens["court"] = string(next.Court)
			tokens["date"] = next.NextHearingDate
		} else {
			tokens["caseNumber"], tokens["caseTitle"], tokens["court"], tokens["date"] = "", "", "", ""
		}
		tpl = cfg.SmartTemplates.WhatsAppSessionReminder
	case MessageGeneral:
		tpl = cfg.SmartTemplates.WhatsAppGeneral
	default:
		return "", fmt.Errorf("render: unknown message kind %q: %w", kind, apperr.ErrValidation)
	}
	return Fill(tpl, tokens), nil
}

// InvoiceMessage fills the invoice notification template.
func InvoiceMessage(cfg models.SystemConfig, client models.Client, inv models.Invoice) string {
	tokens := officeTokens(cfg)
	tokens["clientName"] = client.Name
	tokens["invoiceNumber"] = inv.InvoiceNumber
	tokens["amount"] = Amount(inv.Total())
	tokens["description"] = inv.Description
	tokens["caseTitle"] = inv.CaseTitle
	return Fill(cfg.SmartTemplates.WhatsAppInvoice, tokens)
}
