package shared

// Core platform permissions.
const (
	PermAccountsView   = "accounts.view"
	PermAccountsEdit   = "accounts.edit"
	PermAccountsDelete = "accounts.delete"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPersonnelView = "personnel.view"
	PermPersonnelEdit = "personnel.edit"

	PermRecordsView = "records.view"
	PermRecordsEdit = "records.edit"

	PermEventsView = "events.view"
	PermEventsEdit = "events.edit"

	PermAuditView = "audit.view"

	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermAccountsView,
		PermAccountsEdit,
		PermAccountsDelete,
		PermRolesView,
		PermRolesEdit,
		PermPersonnelView,
		PermPersonnelEdit,
		PermRecordsView,
		PermRecordsEdit,
		PermEventsView,
		PermEventsEdit,
		PermAuditView,
		PermSettingsView,
		PermSettingsEdit,
	}
}
