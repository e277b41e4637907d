// Package reconcile restores the referential invariants of the office state.
//
// Reconcile and DedupExpenses are pure: they never mutate their inputs and
// running them on their own output reports no change. Callers invoke them
// explicitly after every mutation; nothing here reacts to state changes.
package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/starford/lexdesk/internal/models"
)

// PlaceholderPrefix prefixes the id of every synthesized case.
const PlaceholderPrefix = "auto-"

// Input is the slice of state the engine reads.
type Input struct {
	Clients  []models.Client
	Cases    []models.Case
	Invoices []models.Invoice
	// Now stamps synthesized cases. Zero means time.Now.
	Now time.Time
}

// Output holds the repaired collections. When Changed is false Cases and
// Invoices are the input slices unchanged.
type Output struct {
	Cases    []models.Case
	Invoices []models.Invoice
	Changed  bool
}

// PlaceholderID returns the deterministic id of the placeholder case for clientID.
func PlaceholderID(clientID string) string {
	return PlaceholderPrefix + clientID
}

// PlaceholderTitle is the title given to a synthesized case.
func PlaceholderTitle(clientName string) string {
	if clientName == "" {
		return "General services file"
	}
	return fmt.Sprintf("General services file (%s)", clientName)
}

// Reconcile guarantees that every client owns at least one case and that
// every invoice of a known client points at a case of that client.
func Reconcile(in Input) Output {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	byClient := make(map[string][]int, len(in.Clients))
	for i, c := range in.Cases {
		byClient[c.ClientID] = append(byClient[c.ClientID], i)
	}

	numbers := newCaseNumbers(in.Cases)
	var synthesized []models.Case
	for _, cl := range in.Clients {
		if len(byClient[cl.ID]) > 0 {
			continue
		}
		synthesized = append(synthesized, models.Case{
			ID:         PlaceholderID(cl.ID),
			CaseNumber: numbers.next(),
			Title:      PlaceholderTitle(cl.Name),
			ClientID:   cl.ID,
			ClientName: cl.Name,
			Status:     models.CaseActive,
			CreatedAt:  now.Format(models.DateLayout),
			Documents:  []models.Document{},
		})
	}

	cases := in.Cases
	changed := false
	if len(synthesized) > 0 {
		changed = true
		cases = make([]models.Case, 0, len(synthesized)+len(in.Cases))
		cases = append(cases, synthesized...)
		cases = append(cases, in.Cases...)
	}

	// First case per client in final order: placeholders are prepended so
	// they win only for clients that had none.
	firstCase := make(map[string]models.Case, len(in.Clients))
	caseByID := make(map[string]models.Case, len(cases))
	for _, c := range cases {
		if _, ok := firstCase[c.ClientID]; !ok {
			firstCase[c.ClientID] = c
		}
		if _, ok := caseByID[c.ID]; !ok {
			caseByID[c.ID] = c
		}
	}
	knownClient := make(map[string]string, len(in.Clients))
	for _, cl := range in.Clients {
		knownClient[cl.ID] = cl.Name
	}

	var invoices []models.Invoice
	for i, inv := range in.Invoices {
		fixed, dirty := repairInvoice(inv, knownClient, firstCase, caseByID)
		if !dirty {
			continue
		}
		if invoices == nil {
			invoices = append([]models.Invoice(nil), in.Invoices...)
		}
		invoices[i] = fixed
		changed = true
	}
	if invoices == nil {
		invoices = in.Invoices
	}

	return Output{Cases: cases, Invoices: invoices, Changed: changed}
}

// PlaceholderNumberPrefix prefixes the case number of every synthesized case.
const PlaceholderNumberPrefix = "AUTO-"

// caseNumbers hands out placeholder case numbers above the highest AUTO-n
// in use, skipping any number a case already carries.
type caseNumbers struct {
	taken map[string]struct{}
	last  int
}

func newCaseNumbers(cases []models.Case) *caseNumbers {
	n := &caseNumbers{taken: make(map[string]struct{}, len(cases))}
	for _, c := range cases {
		num := strings.ToUpper(strings.TrimSpace(c.CaseNumber))
		n.taken[num] = struct{}{}
		if seq, ok := strings.CutPrefix(num, PlaceholderNumberPrefix); ok {
			if v, err := strconv.Atoi(seq); err == nil && v > n.last {
				n.last = v
			}
		}
	}
	return n
}

func (n *caseNumbers) next() string {
	for {
		n.last++
		num := fmt.Sprintf("%s%04d", PlaceholderNumberPrefix, n.last)
		if _, dup := n.taken[num]; !dup {
			n.taken[num] = struct{}{}
			return num
		}
	}
}

func repairInvoice(inv models.Invoice, clients map[string]string, firstCase, caseByID map[string]models.Case) (models.Invoice, bool) {
	name, known := clients[inv.ClientID]
	if !known {
		return inv, false
	}
	def, ok := firstCase[inv.ClientID]
	if !ok {
		return inv, false
	}

	if c, ok := caseByID[inv.CaseID]; ok && inv.CaseID != "" && c.ClientID == inv.ClientID {
		if inv.CaseTitle == "" && c.Title != "" {
			inv.CaseTitle = c.Title
			return inv, true
		}
		return inv, false
	}

	inv.CaseID = def.ID
	inv.CaseTitle = def.Title
	if inv.ClientName == "" {
		inv.ClientName = name
	}
	return inv, true
}

// ExpenseKey is the natural key two expenses must not share.
func ExpenseKey(e models.Expense) string {
	date := strings.TrimSpace(e.Date)
	if len(date) > 10 {
		date = date[:10]
	}
	return strings.Join([]string{
		date,
		fmt.Sprintf("%.2f", roundCents(e.Amount)),
		strings.ToLower(strings.TrimSpace(e.Category)),
		strings.ToLower(strings.TrimSpace(e.Description)),
	}, "|")
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// DedupExpenses keeps the first expense of every natural key, preserving order.
// The result is always a fresh slice.
func DedupExpenses(in []models.Expense) []models.Expense {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Expense, 0, len(in))
	for _, e := range in {
		k := ExpenseKey(e)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
