package models

import "time"

// Collection keys shared by the local store, the remote store and the backup format.
const (
	KeyClients  = "clients"
	KeyCases    = "cases"
	KeyInvoices = "invoices"
	KeyExpenses = "expenses"
	KeyConfig   = "config"
	KeyLogs     = "logs"
)

// SyncedKeys lists the six collections mirrored to the remote store.
var SyncedKeys = []string{KeyClients, KeyCases, KeyInvoices, KeyExpenses, KeyConfig, KeyLogs}

// State is a point-in-time copy of every domain collection.
type State struct {
	Clients  []Client     `json:"clients"`
	Cases    []Case       `json:"cases"`
	Invoices []Invoice    `json:"invoices"`
	Expenses []Expense    `json:"expenses"`
	Config   SystemConfig `json:"config"`
	Logs     []SystemLog  `json:"logs"`
}

// Clone returns a copy whose top-level slices do not alias s.
func (s State) Clone() State {
	return State{
		Clients:  append([]Client(nil), s.Clients...),
		Cases:    append([]Case(nil), s.Cases...),
		Invoices: append([]Invoice(nil), s.Invoices...),
		Expenses: append([]Expense(nil), s.Expenses...),
		Config:   s.Config,
		Logs:     append([]SystemLog(nil), s.Logs...),
	}
}

// Backup is the portable export format.
type Backup struct {
	BackupVersion string        `json:"backupVersion"`
	AppName       string        `json:"appName"`
	Timestamp     time.Time     `json:"timestamp"`
	Config        *SystemConfig `json:"config,omitempty"`
	Clients       []Client      `json:"clients"`
	Cases         []Case        `json:"cases"`
	Invoices      []Invoice     `json:"invoices"`
	Expenses      []Expense     `json:"expenses"`
	Logs          []SystemLog   `json:"logs"`
}

// BackupVersion is written into every exported backup.
const BackupVersion = "2.0"
