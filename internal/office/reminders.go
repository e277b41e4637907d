package office

import (
	"fmt"
	"sort"

	"github.com/starford/lexdesk/internal/models"
)

// Reminder sources.
const (
	ReminderHearing   = "case_hearing"
	ReminderDocReview = "doc_review"
)

// Reminder is a dated follow-up derived from case data. Reminders are not
// stored; they are recomputed from the current cases.
type Reminder struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	CaseID   string `json:"caseId"`
	DocID    string `json:"docId,omitempty"`
	ClientID string `json:"clientId"`
	Title    string `json:"title"`
	Note     string `json:"note"`
	DueDate  string `json:"dueDate"`
	DueTime  string `json:"dueTime"`
	Priority string `json:"priority"`
}

// ReminderFilter bounds reminders by due date. Dates are YYYY-MM-DD; empty
// bounds are open.
type ReminderFilter struct {
	From string
	To   string
}

func (f ReminderFilter) admits(day string) bool {
	if f.From != "" && day < f.From {
		return false
	}
	if f.To != "" && day > f.To {
		return false
	}
	return true
}

// Reminders lists hearing and document-review reminders ordered by due time.
func (s *Service) Reminders(f ReminderFilter) []Reminder {
	s.mu.RLock()
	cases := append([]models.Case(nil), s.state.Cases...)
	s.mu.RUnlock()

	out := []Reminder{}
	for _, c := range cases {
		if c.NextHearingDate != "" && f.admits(day(c.NextHearingDate)) {
			out = append(out, Reminder{
				ID:       "hearing-" + c.ID,
				Source:   ReminderHearing,
				CaseID:   c.ID,
				ClientID: c.ClientID,
				Title:    fmt.Sprintf("Hearing: %s (no. %s)", c.Title, c.CaseNumber),
				Note:     fmt.Sprintf("Client: %s | Court: %s", c.ClientName, c.Court),
				DueDate:  day(c.NextHearingDate),
				DueTime:  "09:00",
				Priority: "high",
			})
		}
		for _, d := range c.Documents {
			if d.ReviewReminder == "" || !f.admits(day(d.ReviewReminder)) {
				continue
			}
			out = append(out, Reminder{
				ID:       "review-" + c.ID + "-" + d.ID,
				Source:   ReminderDocReview,
				CaseID:   c.ID,
				DocID:    d.ID,
				ClientID: c.ClientID,
				Title:    "Document review: " + d.Name,
				Note:     fmt.Sprintf("Case: %s (no. %s)", c.Title, c.CaseNumber),
				DueDate:  day(d.ReviewReminder),
				DueTime:  "10:00",
				Priority: "normal",
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate+"T"+out[i].DueTime < out[j].DueDate+"T"+out[j].DueTime
	})
	return out
}

func day(v string) string {
	if len(v) > 10 {
		return v[:10]
	}
	return v
}
