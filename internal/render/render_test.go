package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
)

func TestFill(t *testing.T) {
	got := Fill("Dear {clientName}, {unknown} {amount}{amount}", map[string]string{
		"clientName": "Huda",
		"amount":     "5",
	})
	if want := "Dear Huda, {unknown} 55"; got != want {
		t.Errorf("Fill = %q, want %q", got, want)
	}
}

func TestAmount(t *testing.T) {
	cases := map[float64]string{
		0:        "0",
		1000:     "1,000",
		1234.5:   "1,234.50",
		-2500000: "-2,500,000",
		99.999:   "100",
	}
	for in, want := range cases {
		if got := Amount(in); got != want {
			t.Errorf("Amount(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestWhatsAppURL(t *testing.T) {
	got, err := WhatsAppURL("+971 (50) 123-4567", "Hello there & welcome")
	if err != nil {
		t.Fatal(err)
	}
	want := "https://wa.me/971501234567?text=Hello%20there%20%26%20welcome"
	if got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
	if _, err := WhatsAppURL("n/a", "x"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestClientMessage(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	cfg.OfficeName = "Al Noor"
	client := models.Client{ID: "c1", Name: "Huda"}
	invoices := []models.Invoice{
		{ClientID: "c1", Amount: 1000, Status: models.InvoiceUnpaid},
		{ClientID: "c1", Amount: 500, Status: models.InvoicePartial},
		{ClientID: "c1", Amount: 900, Status: models.InvoicePaid},
		{ClientID: "c2", Amount: 7, Status: models.InvoiceUnpaid},
	}
	cases := []models.Case{
		{ClientID: "c1", CaseNumber: "B", NextHearingDate: "2024-05-01"},
		{ClientID: "c1", CaseNumber: "A", NextHearingDate: "2024-03-01"},
		{ClientID: "c1", CaseNumber: "none"},
	}

	msg, err := ClientMessage(MessagePayment, cfg, client, cases, invoices)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "1,500") || !strings.Contains(msg, "Huda") || !strings.Contains(msg, "Al Noor") {
		t.Errorf("payment message = %q", msg)
	}

	msg, _ = ClientMessage(MessageSession, cfg, client, cases, invoices)
	if !strings.Contains(msg, "case A") || !strings.Contains(msg, "2024-03-01") {
		t.Errorf("session message = %q", msg)
	}

	if _, err := ClientMessage("fax", cfg, client, nil, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestPrinter(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	cfg.OfficeName = "Al Noor <Legal>"
	cfg.PrimaryColor = "red;}body{display:none"
	inv := models.Invoice{InvoiceNumber: "INV-1001", ClientName: "Huda", Amount: 1000, DiscountType: "percent", DiscountValue: 10, Date: "2024-01-05", Status: models.InvoicePaid}

	p := NewPrinter()
	page, err := p.Render(ModeInvoice, cfg, inv)
	if err != nil {
		t.Fatal(err)
	}
	html := string(page)
	if !strings.Contains(html, "INV-1001") || !strings.Contains(html, "900") {
		t.Errorf("invoice page missing number or total")
	}
	if strings.Contains(html, "<Legal>") {
		t.Error("office name not escaped")
	}
	if strings.Contains(html, "display:none") {
		t.Error("unsafe color not sanitized")
	}

	page, err = p.Render(ModeReceipt, cfg, inv)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), "REC-1001") {
		t.Error("receipt number not derived")
	}

	if _, err := p.Render("pdf", cfg, inv); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
