package models

import (
	"encoding/json"
	"fmt"
)

// ServiceItem is a billable service offered by the office.
type ServiceItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price,omitempty"`
}

// InvoiceTemplate is a reusable invoice description.
type InvoiceTemplate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CaseTypeConfig is one entry of the case-type taxonomy.
type CaseTypeConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SmartTemplates are message and print texts with {token} placeholders.
type SmartTemplates struct {
	WhatsAppInvoice         string `json:"whatsappInvoice"`
	WhatsAppPaymentReminder string `json:"whatsappPaymentReminder"`
	WhatsAppSessionReminder string `json:"whatsappSessionReminder"`
	WhatsAppGeneral         string `json:"whatsappGeneral"`
	InvoiceLineNote         string `json:"invoiceLineNote"`
	InvoiceFooter           string `json:"invoiceFooter"`
	ReceiptFooter           string `json:"receiptFooter"`
}

// InvoiceFormatting holds the per-tenant invoice numbering state.
type InvoiceFormatting struct {
	Prefix       string `json:"prefix"`
	Suffix       string `json:"suffix"`
	NextSequence int    `json:"nextSequence"`
}

// Format renders the invoice number for the current sequence.
func (f InvoiceFormatting) Format() string {
	return fmt.Sprintf("%s%d%s", f.Prefix, f.NextSequence, f.Suffix)
}

// Features toggles optional modules.
type Features struct {
	EnableAI       bool `json:"enableAI"`
	EnableAnalysis bool `json:"enableAnalysis"`
	EnableWhatsApp bool `json:"enableWhatsApp"`
}

// SystemConfig is the tenant-wide singleton configuration.
type SystemConfig struct {
	OfficeName    string `json:"officeName"`
	OfficeSlogan  string `json:"officeSlogan"`
	OfficePhone   string `json:"officePhone,omitempty"`
	OfficeEmail   string `json:"officeEmail,omitempty"`
	OfficeAddress string `json:"officeAddress,omitempty"`
	OfficeWebsite string `json:"officeWebsite,omitempty"`

	PrimaryColor    string  `json:"primaryColor"`
	SecondaryColor  string  `json:"secondaryColor"`
	BackgroundColor string  `json:"backgroundColor"`
	FontFamily      string  `json:"fontFamily"`
	Logo            *string `json:"logo"`
	Stamp           *string `json:"stamp"`

	Services         []ServiceItem     `json:"services"`
	CaseTypes        []CaseTypeConfig  `json:"caseTypes"`
	InvoiceTemplates []InvoiceTemplate `json:"invoiceTemplates"`
	SmartTemplates   SmartTemplates    `json:"smartTemplates"`
	OfficeTemplates  []Document        `json:"officeTemplates"`

	InvoiceFormatting InvoiceFormatting `json:"invoiceFormatting"`
	Features          Features          `json:"features"`
}

// DefaultSystemConfig returns a fresh configuration with every required field populated.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		OfficeName:      "Law Office",
		OfficeSlogan:    "Legal Consultancy & Advocacy",
		PrimaryColor:    "#0f172a",
		SecondaryColor:  "#d4af37",
		BackgroundColor: "#f8fafc",
		FontFamily:      "Cairo",
		Services:        []ServiceItem{},
		CaseTypes:       defaultCaseTypes(),
		InvoiceTemplates: []InvoiceTemplate{
			{ID: "tpl-consultation", Title: "Legal consultation", Content: "Legal consultation fees"},
			{ID: "tpl-case-fee", Title: "Case fee installment", Content: "Fee installment for case no. {caseNumber}"},
			{ID: "tpl-drafting", Title: "Contract drafting", Content: "Drafting and review of contract"},
		},
		SmartTemplates:  defaultSmartTemplates(),
		OfficeTemplates: []Document{},
		InvoiceFormatting: InvoiceFormatting{
			Prefix:       "INV-",
			NextSequence: 1001,
		},
		Features: Features{
			EnableAI:       true,
			EnableAnalysis: true,
			EnableWhatsApp: true,
		},
	}
}

func defaultCaseTypes() []CaseTypeConfig {
	return []CaseTypeConfig{
		{ID: "civil", Name: "Civil"},
		{ID: "commercial", Name: "Commercial"},
		{ID: "criminal", Name: "Criminal"},
		{ID: "labour", Name: "Labour"},
		{ID: "family", Name: "Personal status"},
		{ID: "rental", Name: "Rental dispute"},
	}
}

func defaultSmartTemplates() SmartTemplates {
	return SmartTemplates{
		WhatsAppInvoice:         "Dear {clientName},\nInvoice {invoiceNumber} for {amount} has been issued for case {caseTitle}.\n{officeName}",
		WhatsAppPaymentReminder: "Dear {clientName},\nThis is a reminder of an outstanding balance of {due}.\n{officeName}",
		WhatsAppSessionReminder: "Dear {clientName},\nYour next hearing for case {caseNumber} is on {date}.\n{officeName}",
		WhatsAppGeneral:         "Dear {clientName},\nDo you have any legal questions today?\n{officeName}",
		InvoiceLineNote:         "Fee installment for case no. {caseNumber}",
		InvoiceFooter:           "{officeName} | {officePhone} | {officeEmail} | {officeWebsite}",
		ReceiptFooter:           "Received with thanks. {officeName} | {officePhone}",
	}
}

// WithDefaults fills every missing or cleared field from DefaultSystemConfig.
func (c SystemConfig) WithDefaults() SystemConfig {
	d := DefaultSystemConfig()
	if c.OfficeName == "" {
		c.OfficeName = d.OfficeName
	}
	if c.PrimaryColor == "" {
		c.PrimaryColor = d.PrimaryColor
	}
	if c.SecondaryColor == "" {
		c.SecondaryColor = d.SecondaryColor
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = d.BackgroundColor
	}
	if c.FontFamily == "" {
		c.FontFamily = d.FontFamily
	}
	if c.Services == nil {
		c.Services = d.Services
	}
	if len(c.CaseTypes) == 0 {
		c.CaseTypes = d.CaseTypes
	}
	if len(c.InvoiceTemplates) == 0 {
		c.InvoiceTemplates = d.InvoiceTemplates
	}
	if c.OfficeTemplates == nil {
		c.OfficeTemplates = d.OfficeTemplates
	}
	c.SmartTemplates = mergeSmartTemplates(c.SmartTemplates, d.SmartTemplates)
	if c.InvoiceFormatting.NextSequence <= 0 {
		c.InvoiceFormatting.NextSequence = d.InvoiceFormatting.NextSequence
	}
	return c
}

func mergeSmartTemplates(t, d SmartTemplates) SmartTemplates {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&t.WhatsAppInvoice, d.WhatsAppInvoice)
	fill(&t.WhatsAppPaymentReminder, d.WhatsAppPaymentReminder)
	fill(&t.WhatsAppSessionReminder, d.WhatsAppSessionReminder)
	fill(&t.WhatsAppGeneral, d.WhatsAppGeneral)
	fill(&t.InvoiceLineNote, d.InvoiceLineNote)
	fill(&t.InvoiceFooter, d.InvoiceFooter)
	fill(&t.ReceiptFooter, d.ReceiptFooter)
	return t
}

// MergeSystemConfig decodes a stored configuration over the defaults.
// Empty or corrupt input yields the defaults together with the decode error, if any.
func MergeSystemConfig(raw []byte) (SystemConfig, error) {
	cfg := DefaultSystemConfig()
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return DefaultSystemConfig(), fmt.Errorf("models: decode config: %w", err)
	}
	return cfg.WithDefaults(), nil
}
