package api

import (
	"strings"

	"github.com/starford/lexdesk/internal/auth"
	"github.com/starford/lexdesk/internal/models"
)

// LoginRequest is the request body for signing in.
type LoginRequest struct {
	ID       string `json:"id" example:"admin" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session token and the signed-in user.
type LoginResponse struct {
	Token string         `json:"token" validate:"required"`
	User  auth.Principal `json:"user" validate:"required"`
}

// ClientRequest is the request body for creating or replacing a client.
type ClientRequest struct {
	Name            string            `json:"name" example:"Mariam Haddad" validate:"required,max=200"`
	Type            models.ClientType `json:"type" validate:"omitempty,oneof=Individual Corporate"`
	Email           string            `json:"email" validate:"omitempty,email"`
	Phone           string            `json:"phone" example:"+971 50 123 4567" validate:"max=40"`
	EmiratesID      string            `json:"emiratesId" validate:"max=40"`
	Address         string            `json:"address"`
	PlatformAccount string            `json:"platformAccount"`
	DateOfBirth     string            `json:"dateOfBirth" validate:"isodate"`
	ProfileImage    string            `json:"profileImage"`
	Notes           string            `json:"notes"`
	Tags            []string          `json:"tags"`
	Documents       []models.Document `json:"documents"`
}

func (r ClientRequest) model() models.Client {
	return models.Client{
		Name:            strings.TrimSpace(r.Name),
		Type:            r.Type,
		Email:           r.Email,
		Phone:           r.Phone,
		EmiratesID:      r.EmiratesID,
		Address:         r.Address,
		PlatformAccount: r.PlatformAccount,
		DateOfBirth:     r.DateOfBirth,
		ProfileImage:    r.ProfileImage,
		Notes:           r.Notes,
		Tags:            r.Tags,
		Documents:       r.Documents,
	}
}

// CaseRequest is the request body for creating or replacing a case.
type CaseRequest struct {
	CaseNumber          string                      `json:"caseNumber" example:"120/2024" validate:"required,max=64"`
	Title               string                      `json:"title" validate:"required,max=300"`
	CaseType            string                      `json:"caseType"`
	ClientID            string                      `json:"clientId" validate:"required"`
	OpponentName        string                      `json:"opponentName"`
	Court               models.Court                `json:"court"`
	Status              models.CaseStatus           `json:"status" validate:"omitempty,oneof=active pending closed appeal judgment litigation"`
	NextHearingDate     string                      `json:"nextHearingDate" validate:"isodate"`
	AssignedLawyer      string                      `json:"assignedLawyer"`
	Documents           []models.Document           `json:"documents"`
	TotalFee            float64                     `json:"totalFee" validate:"gte=0"`
	PaidAmount          float64                     `json:"paidAmount" validate:"gte=0"`
	ReminderPreferences *models.ReminderPreferences `json:"reminderPreferences"`
}

func (r CaseRequest) model() models.Case {
	return models.Case{
		CaseNumber:          r.CaseNumber,
		Title:               strings.TrimSpace(r.Title),
		CaseType:            r.CaseType,
		ClientID:            r.ClientID,
		OpponentName:        r.OpponentName,
		Court:               r.Court,
		Status:              r.Status,
		NextHearingDate:     r.NextHearingDate,
		AssignedLawyer:      r.AssignedLawyer,
		Documents:           r.Documents,
		TotalFee:            r.TotalFee,
		PaidAmount:          r.PaidAmount,
		ReminderPreferences: r.ReminderPreferences,
	}
}

// InvoiceRequest is the request body for creating or replacing an invoice.
// InvoiceNumber is only honoured on update; new invoices are numbered by the office.
type InvoiceRequest struct {
	InvoiceNumber string               `json:"invoiceNumber"`
	ClientID      string               `json:"clientId" validate:"required"`
	CaseID        string               `json:"caseId"`
	Amount        float64              `json:"amount" example:"5000" validate:"gte=0"`
	Date          string               `json:"date" validate:"isodate"`
	Status        models.InvoiceStatus `json:"status" validate:"omitempty,oneof=Paid Unpaid Partial"`
	Description   string               `json:"description"`
	DiscountValue float64              `json:"discountValue" validate:"gte=0"`
	DiscountType  string               `json:"discountType" validate:"omitempty,oneof=percent fixed"`
}

func (r InvoiceRequest) model() models.Invoice {
	return models.Invoice{
		InvoiceNumber: r.InvoiceNumber,
		ClientID:      r.ClientID,
		CaseID:        r.CaseID,
		Amount:        r.Amount,
		Date:          r.Date,
		Status:        r.Status,
		Description:   r.Description,
		DiscountValue: r.DiscountValue,
		DiscountType:  r.DiscountType,
	}
}

// ExpenseRequest is the request body for creating or replacing an expense.
type ExpenseRequest struct {
	Category    string               `json:"category" example:"Rent" validate:"required,max=100"`
	Amount      float64              `json:"amount" validate:"gte=0"`
	Date        string               `json:"date" validate:"isodate"`
	Description string               `json:"description"`
	Status      models.ExpenseStatus `json:"status" validate:"omitempty,oneof=Paid Pending"`
}

func (r ExpenseRequest) model() models.Expense {
	return models.Expense{
		Category:    strings.TrimSpace(r.Category),
		Amount:      r.Amount,
		Date:        r.Date,
		Description: r.Description,
		Status:      r.Status,
	}
}

// PendingSearchRequest stashes a query for the search page.
type PendingSearchRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

// PendingSearchResponse returns the stashed query, empty when none.
type PendingSearchResponse struct {
	Query string `json:"query"`
}

// WhatsAppRequest selects the message to send to a client.
type WhatsAppRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=payment session general invoice"`
	InvoiceID string `json:"invoiceId" validate:"required_if=Kind invoice"`
}

// WhatsAppResponse is a ready-to-open wa.me link.
type WhatsAppResponse struct {
	URL     string `json:"url" example:"https://wa.me/971501234567?text=..." validate:"required"`
	Message string `json:"message" validate:"required"`
}

// SyncEnabledRequest toggles cloud sync.
type SyncEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// AppendLogRequest records a free-text audit entry.
type AppendLogRequest struct {
	Action string `json:"action" validate:"required,max=500"`
}

// TextResponse is the AI proxy reply.
type TextResponse struct {
	Text string `json:"text"`
}
