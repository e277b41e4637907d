// Package models defines the domain types for lexdesk.
package models

import "time"

// ClientType distinguishes natural persons from companies.
type ClientType string

const (
	ClientIndividual ClientType = "Individual"
	ClientCorporate  ClientType = "Corporate"
)

// CaseStatus is the lifecycle state of a legal case.
type CaseStatus string

const (
	CaseActive     CaseStatus = "active"
	CasePending    CaseStatus = "pending"
	CaseClosed     CaseStatus = "closed"
	CaseAppeal     CaseStatus = "appeal"
	CaseJudgment   CaseStatus = "judgment"
	CaseLitigation CaseStatus = "litigation"
)

// Court identifies the court a case is heard in.
type Court string

const (
	CourtDubai    Court = "dubai"
	CourtAbuDhabi Court = "abu_dhabi"
	CourtFederal  Court = "federal"
	CourtDIFC     Court = "difc"
	CourtShariah  Court = "shariah"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "Unpaid"
	InvoicePaid    InvoiceStatus = "Paid"
	InvoicePartial InvoiceStatus = "Partial"
)

// ExpenseStatus is the payment state of an expense.
type ExpenseStatus string

const (
	ExpensePaid    ExpenseStatus = "Paid"
	ExpensePending ExpenseStatus = "Pending"
)

// Document is a file attached to a client or a case. Content is usually a data URL.
type Document struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	MimeType       string `json:"mimeType,omitempty"`
	Category       string `json:"category,omitempty"`
	UploadDate     string `json:"uploadDate"`
	Content        string `json:"content,omitempty"`
	Status         string `json:"status,omitempty"` // "Signed" or "Draft"
	Description    string `json:"description,omitempty"`
	ReviewReminder string `json:"reviewReminder,omitempty"`
}

// Client is an identity record. It owns its documents and, by cascade, its cases and invoices.
type Client struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            ClientType `json:"type"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	EmiratesID      string     `json:"emiratesId"`
	Address         string     `json:"address,omitempty"`
	PlatformAccount string     `json:"platformAccount,omitempty"`
	DateOfBirth     string     `json:"dateOfBirth,omitempty"`
	ProfileImage    string     `json:"profileImage,omitempty"`
	TotalCases      int        `json:"totalCases"`
	CreatedAt       string     `json:"createdAt"`
	Notes           string     `json:"notes,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Documents       []Document `json:"documents,omitempty"`
}

// ReminderPreferences controls hearing reminder lead times.
type ReminderPreferences struct {
	SevenDays bool `json:"sevenDays"`
	OneDay    bool `json:"oneDay"`
}

// Case is a legal matter owned by a client. CaseNumber is unique per tenant at input time only.
type Case struct {
	ID                  string               `json:"id"`
	CaseNumber          string               `json:"caseNumber"`
	Title               string               `json:"title"`
	CaseType            string               `json:"caseType,omitempty"`
	ClientID            string               `json:"clientId"`
	ClientName          string               `json:"clientName"`
	OpponentName        string               `json:"opponentName"`
	Court               Court                `json:"court"`
	Status              CaseStatus           `json:"status"`
	NextHearingDate     string               `json:"nextHearingDate"`
	AssignedLawyer      string               `json:"assignedLawyer"`
	CreatedAt           string               `json:"createdAt"`
	Documents           []Document           `json:"documents"`
	TotalFee            float64              `json:"totalFee"`
	PaidAmount          float64              `json:"paidAmount"`
	ReminderPreferences *ReminderPreferences `json:"reminderPreferences,omitempty"`
}

// Invoice is a billing record linked to a case and a client by back-reference.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	CaseID        string        `json:"caseId"`
	CaseTitle     string        `json:"caseTitle"`
	ClientID      string        `json:"clientId"`
	ClientName    string        `json:"clientName"`
	Amount        float64       `json:"amount"`
	Date          string        `json:"date"`
	Status        InvoiceStatus `json:"status"`
	Description   string        `json:"description"`
	DiscountValue float64       `json:"discountValue,omitempty"`
	DiscountType  string        `json:"discountType,omitempty"` // "percent" or "fixed"
	FinalAmount   float64       `json:"finalAmount,omitempty"`
}

// Total returns the amount after discount, never below zero.
func (i Invoice) Total() float64 {
	total := i.Amount
	switch i.DiscountType {
	case "percent":
		total -= i.Amount * i.DiscountValue / 100
	case "fixed":
		total -= i.DiscountValue
	}
	if total < 0 {
		return 0
	}
	return total
}

// Expense is an operational cost record.
type Expense struct {
	ID          string        `json:"id"`
	Category    string        `json:"category"`
	Amount      float64       `json:"amount"`
	Date        string        `json:"date"`
	Description string        `json:"description"`
	Status      ExpenseStatus `json:"status"`
}

// SystemLog is an append-only audit entry.
type SystemLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Role      string    `json:"role"`
	Action    string    `json:"action"`
}

// SyncStatus is the transient outcome of the last cloud pull and push.
type SyncStatus struct {
	Enabled   bool       `json:"enabled"`
	Phase     string     `json:"phase"`
	LastPull  *time.Time `json:"lastPull,omitempty"`
	LastPush  *time.Time `json:"lastPush,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// DateLayout is the day-resolution layout used for user-entered dates.
const DateLayout = "2006-01-02"
