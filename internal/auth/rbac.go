package auth

// Role is an office staff role.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleAssistant  Role = "ASSISTANT"
	RoleAccountant Role = "ACCOUNTANT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePerms[r]
	return ok
}

// Permission gates a group of operations.
type Permission string

const (
	PermViewDashboard    Permission = "view_dashboard"
	PermManageCases      Permission = "manage_cases"
	PermManageClients    Permission = "manage_clients"
	PermManageDocuments  Permission = "manage_documents"
	PermManageReminders  Permission = "manage_reminders"
	PermManageAccounting Permission = "manage_accounting"
	PermManageSettings   Permission = "manage_settings"
	PermViewAI           Permission = "view_ai"
)

var rolePerms = map[Role]map[Permission]bool{
	RoleAdmin: {
		PermViewDashboard:    true,
		PermManageCases:      true,
		PermManageClients:    true,
		PermManageDocuments:  true,
		PermManageReminders:  true,
		PermManageAccounting: true,
		PermManageSettings:   true,
		PermViewAI:           true,
	},
	RoleAssistant: {
		PermViewDashboard:   true,
		PermManageCases:     true,
		PermManageClients:   true,
		PermManageDocuments: true,
		PermManageReminders: true,
		PermViewAI:          true,
	},
	RoleAccountant: {
		PermViewDashboard:    true,
		PermManageClients:    true,
		PermManageAccounting: true,
		PermManageDocuments:  true,
		PermManageReminders:  true,
	},
}

// HasPerm reports whether role grants p. Unknown roles grant nothing.
func HasPerm(role Role, p Permission) bool {
	return rolePerms[role][p]
}
