// Package admin exposes the raw-table data browser. Table names arriving
// from the URL are resolved through a closed allow-list; nothing outside it
// is ever interpolated into SQL.
package admin

import (
	dErrors "atrium/pkg/domain-errors"
)

// Table identifies one browsable table. Only the values registered in
// tableSchemas exist; ParseTable is the sole way to obtain one from a string.
type Table string

const (
	TableUsers              Table = "users"
	TableClients            Table = "clients"
	TableContactIdentifiers Table = "contact_identifiers"
	TableSearches           Table = "searches"
	TableSearchClients      Table = "search_clients"
	TableTasks              Table = "tasks"
	TableTodos              Table = "todos"
	TableEvents             Table = "events"
	TableWallets            Table = "wallets"
	TableProjects           Table = "projects"
	TableExpenses           Table = "expenses"
	TableConversations      Table = "conversations"
	TableParticipants       Table = "conversation_participants"
	TableMessages           Table = "messages"
	TableStoredFiles        Table = "stored_files"
	TableAuditEntries       Table = "audit_entries"
)

// truncateProtected tables reject DELETE. users would orphan every owned row
// and audit_entries is append-only by contract.
var truncateProtected = map[Table]bool{
	TableUsers:        true,
	TableAuditEntries: true,
}

// ParseTable resolves a URL parameter against the allow-list.
func ParseTable(raw string) (Table, error) {
	t := Table(raw)
	if _, ok := tableSchemas[t]; !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "table not allowed")
	}
	return t, nil
}

// TruncateProtected reports whether DELETE is rejected for the table.
func (t Table) TruncateProtected() bool {
	return truncateProtected[t]
}

// colKind selects the typed scan destination for a column.
type colKind int

const (
	kindUUID colKind = iota
	kindText
	kindInt
	kindBool
	kindTime
	kindNullTime
	kindNullUUID
	kindJSON
)

type column struct {
	name string
	kind colKind
}

// tableSchemas is the allow-list. Each entry names the browsable columns and
// their scan types; password hashes and other secrets are never listed.
var tableSchemas = map[Table][]column{
	TableUsers: {
		{"id", kindUUID}, {"email", kindText}, {"username", kindText},
		{"name", kindText}, {"role", kindText}, {"active", kindBool},
		{"created_at", kindTime}, {"updated_at", kindTime}, {"deleted_at", kindNullTime},
	},
	TableClients: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"name", kindText},
		{"slug", kindText}, {"email", kindText}, {"phone", kindText},
		{"notes", kindText}, {"created_at", kindTime}, {"updated_at", kindTime},
		{"deleted_at", kindNullTime},
	},
	TableContactIdentifiers: {
		{"id", kindUUID}, {"client_id", kindUUID}, {"number", kindText},
		{"kind", kindText},
	},
	TableSearches: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"name", kindText},
		{"created_at", kindTime},
	},
	TableSearchClients: {
		{"search_id", kindUUID}, {"client_id", kindUUID},
	},
	TableTasks: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"title", kindText},
		{"description", kindText}, {"status", kindText}, {"due_date", kindNullTime},
		{"created_at", kindTime}, {"updated_at", kindTime}, {"deleted_at", kindNullTime},
	},
	TableTodos: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"text", kindText},
		{"done", kindBool}, {"created_at", kindTime}, {"updated_at", kindTime},
		{"deleted_at", kindNullTime},
	},
	TableEvents: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"title", kindText},
		{"starts_at", kindTime}, {"ends_at", kindNullTime}, {"location", kindText},
		{"created_at", kindTime}, {"updated_at", kindTime}, {"deleted_at", kindNullTime},
	},
	TableWallets: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"name", kindText},
		{"currency", kindText}, {"balance", kindInt}, {"created_at", kindTime},
		{"updated_at", kindTime},
	},
	TableProjects: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"name", kindText},
		{"created_at", kindTime},
	},
	TableExpenses: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"wallet_id", kindUUID},
		{"project_id", kindNullUUID}, {"amount", kindInt}, {"category", kindText},
		{"description", kindText}, {"created_at", kindTime},
	},
	TableConversations: {
		{"id", kindUUID}, {"creator_id", kindUUID}, {"title", kindText},
		{"created_at", kindTime},
	},
	TableParticipants: {
		{"conversation_id", kindUUID}, {"user_id", kindUUID}, {"added_at", kindTime},
	},
	TableMessages: {
		{"id", kindUUID}, {"conversation_id", kindUUID}, {"author_id", kindUUID},
		{"body", kindText}, {"created_at", kindTime}, {"deleted_at", kindNullTime},
	},
	TableStoredFiles: {
		{"id", kindUUID}, {"owner_id", kindUUID}, {"name", kindText},
		{"size", kindInt}, {"content_type", kindText}, {"checksum", kindText},
		{"created_at", kindTime}, {"updated_at", kindTime}, {"deleted_at", kindNullTime},
	},
	TableAuditEntries: {
		{"id", kindUUID}, {"actor_id", kindNullUUID}, {"action", kindText},
		{"entity_type", kindText}, {"entity_id", kindText}, {"description", kindText},
		{"ip_address", kindText}, {"user_agent", kindText}, {"device", kindText},
		{"severity", kindText}, {"metadata", kindJSON}, {"request_id", kindText},
		{"created_at", kindTime},
	},
}

// Row maps column name to a JSON-ready value.
type Row map[string]any

// TableRows is one page of a browsed table.
type TableRows struct {
	Table   Table    `json:"table"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ColumnNames returns the browsable columns of the table in declared order.
func (t Table) ColumnNames() []string {
	schema := tableSchemas[t]
	names := make([]string, 0, len(schema))
	for _, c := range schema {
		names = append(names, c.name)
	}
	return names
}
