package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
)

// PrintMode selects the printable document.
type PrintMode string

const (
	ModeInvoice PrintMode = "invoice"
	ModeReceipt PrintMode = "receipt"
)

// ReceiptNumber derives the receipt number from an invoice number.
func ReceiptNumber(invoiceNumber string) string {
	return strings.Replace(invoiceNumber, "INV", "REC", 1)
}

const printTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>{{.Heading}} {{.Number}}</title>
  <style>
    :root { --primary: {{.Primary}}; --accent: {{.Accent}}; --font: "{{.Font}}"; }
    body { margin: 0; padding: 32px; font-family: var(--font), Arial, sans-serif; color: #111827; }
    .doc { max-width: 820px; margin: 0 auto; }
    .header { display: flex; justify-content: space-between; border-bottom: 3px solid var(--accent); padding-bottom: 16px; margin-bottom: 24px; }
    .header img { max-height: 64px; }
    .number { font-weight: bold; color: var(--primary); }
    table { width: 100%; border-collapse: collapse; font-size: 14px; }
    th, td { padding: 10px; border-bottom: 1px solid #e5e7eb; text-align: left; }
    .totals { text-align: right; margin-top: 12px; }
    .stamp { max-height: 120px; margin-top: 24px; }
    .footer { border-top: 1px solid #e5e7eb; margin-top: 32px; padding-top: 12px; font-size: 12px; color: #6b7280; }
  </style>
</head>
<body>
  <div class="doc">
    <div class="header">
      <div>
        {{if .Logo}}<img src="{{.Logo}}" alt="logo" />{{end}}
        <div><strong>{{.Office}}</strong></div>
        {{if .Slogan}}<div>{{.Slogan}}</div>{{end}}
      </div>
      <div>
        <div>{{.Heading}}</div>
        <div class="number">No. {{.Number}}</div>
        <div>Date: {{.Invoice.Date}}</div>
        <div>Status: {{.Invoice.Status}}</div>
      </div>
    </div>
    <div>
      <div>Client: {{.Invoice.ClientName}}</div>
      {{if .Invoice.CaseTitle}}<div>Case: {{.Invoice.CaseTitle}}</div>{{end}}
    </div>
    <table>
      <thead><tr><th>Description</th><th>Amount</th></tr></thead>
      <tbody><tr><td>{{.Invoice.Description}}</td><td>{{amount .Invoice.Amount}}</td></tr></tbody>
    </table>
    <div class="totals">
      {{if .Discount}}<div>Discount: {{.Discount}}</div>{{end}}
      <div><strong>Total: {{amount .Total}}</strong></div>
    </div>
    {{if .Stamp}}<img class="stamp" src="{{.Stamp}}" alt="stamp" />{{end}}
    <div class="footer">{{.Footer}}</div>
  </div>
</body>
</html>
`

var (
	hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	fontPattern     = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)
)

// Printer renders invoices and receipts as standalone HTML pages.
type Printer struct {
	tpl *template.Template
}

// NewPrinter parses the print template.
func NewPrinter() *Printer {
	funcs := template.FuncMap{"amount": Amount}
	return &Printer{tpl: template.Must(template.New("print").Funcs(funcs).Parse(printTemplate))}
}

type printData struct {
	Heading  string
	Number   string
	Office   string
	Slogan   string
	Primary  string
	Accent   string
	Font     string
	Logo     template.URL
	Stamp    template.URL
	Invoice  models.Invoice
	Discount string
	Total    float64
	Footer   string
}

// Render writes the page for inv in mode.
func (p *Printer) Render(mode PrintMode, cfg models.SystemConfig, inv models.Invoice) ([]byte, error) {
	d := printData{
		Office:  cfg.OfficeName,
		Slogan:  cfg.OfficeSlogan,
		Primary: sanitize(hexColorPattern, cfg.PrimaryColor, "#0f172a"),
		Accent:  sanitize(hexColorPattern, cfg.SecondaryColor, "#d4af37"),
		Font:    sanitize(fontPattern, cfg.FontFamily, "Cairo"),
		Logo:    imageURL(cfg.Logo),
		Stamp:   imageURL(cfg.Stamp),
		Invoice: inv,
		Total:   inv.Total(),
	}
	switch inv.DiscountType {
	case "percent":
		if inv.DiscountValue > 0 {
			d.Discount = Amount(inv.DiscountValue) + "%"
		}
	case "fixed":
		if inv.DiscountValue > 0 {
			d.Discount = Amount(inv.DiscountValue)
		}
	}

	tokens := officeTokens(cfg)
	switch mode {
	case ModeInvoice, "":
		d.Heading = "Invoice"
		d.Number = inv.InvoiceNumber
		d.Footer = Fill(cfg.SmartTemplates.InvoiceFooter, tokens)
	case ModeReceipt:
		d.Heading = "Receipt"
		d.Number = ReceiptNumber(inv.InvoiceNumber)
		d.Footer = Fill(cfg.SmartTemplates.ReceiptFooter, tokens)
	default:
		return nil, fmt.Errorf("render: unknown print mode %q: %w", mode, apperr.ErrValidation)
	}

	var buf bytes.Buffer
	if err := p.tpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("render: execute: %w", err)
	}
	return buf.Bytes(), nil
}

func sanitize(re *regexp.Regexp, v, fallback string) string {
	if re.MatchString(strings.TrimSpace(v)) {
		return strings.TrimSpace(v)
	}
	return fallback
}

// imageURL admits data:image URLs and http(s) links only.
func imageURL(v *string) template.URL {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(*v)
	if strings.HasPrefix(s, "data:image/") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		return template.URL(s)
	}
	return ""
}
