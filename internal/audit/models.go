// Package audit records a structured, append-only trail of every
// state-changing operation. Writes are best-effort: a failed audit append
// never fails the business operation that triggered it.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "atrium/pkg/domain"
)

// Severity levels for audit entries.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Entry is a single audit record. Once written it is never mutated; the only
// permitted deletion is the age-based retention purge.
type Entry struct {
	ID      uuid.UUID
	ActorID *id.UserID // nil for anonymous/failed-auth events
	// Action is a verb+entity code, e.g. "UPDATE_TASK".
	Action      string
	EntityType  string
	EntityID    string // empty when the action has no single subject
	Description string
	IPAddress   string
	UserAgent   string
	Device      string
	Severity    Severity
	Metadata    map[string]any
	CreatedAt   time.Time
	RequestID   string
}

// Action codes. Kept as one flat list so the admin listing filter and tests
// share the same vocabulary.
const (
	ActionLoginUser       = "LOGIN_USER"
	ActionLoginFailed     = "LOGIN_FAILED"
	ActionLogoutUser      = "LOGOUT_USER"
	ActionCreateUser      = "CREATE_USER"
	ActionUpdateUser      = "UPDATE_USER"
	ActionDeleteUser      = "DELETE_USER"
	ActionRestoreUser     = "RESTORE_USER"
	ActionPurgeUser       = "PURGE_USER"
	ActionCreateClient    = "CREATE_CLIENT"
	ActionUpdateClient    = "UPDATE_CLIENT"
	ActionDeleteClient    = "DELETE_CLIENT"
	ActionRestoreClient   = "RESTORE_CLIENT"
	ActionLinkSearch      = "LINK_SEARCH"
	ActionUnlinkSearch    = "UNLINK_SEARCH"
	ActionCreateTask      = "CREATE_TASK"
	ActionUpdateTask      = "UPDATE_TASK"
	ActionDeleteTask      = "DELETE_TASK"
	ActionRestoreTask     = "RESTORE_TASK"
	ActionCreateTodo      = "CREATE_TODO"
	ActionUpdateTodo      = "UPDATE_TODO"
	ActionDeleteTodo      = "DELETE_TODO"
	ActionRestoreTodo     = "RESTORE_TODO"
	ActionCreateEvent     = "CREATE_EVENT"
	ActionUpdateEvent     = "UPDATE_EVENT"
	ActionDeleteEvent     = "DELETE_EVENT"
	ActionRestoreEvent    = "RESTORE_EVENT"
	ActionCreateWallet    = "CREATE_WALLET"
	ActionCreateProject   = "CREATE_PROJECT"
	ActionCreateExpense   = "CREATE_EXPENSE"
	ActionDeleteExpense   = "DELETE_EXPENSE"
	ActionCreateChat      = "CREATE_CONVERSATION"
	ActionAddParticipant  = "ADD_PARTICIPANT"
	ActionPostMessage     = "POST_MESSAGE"
	ActionDeleteMessage   = "DELETE_MESSAGE"
	ActionCreateFile      = "CREATE_FILE"
	ActionUpdateFile      = "UPDATE_FILE"
	ActionDeleteFile      = "DELETE_FILE"
	ActionRestoreFile     = "RESTORE_FILE"
	ActionTruncateTable   = "TRUNCATE_TABLE"
	ActionPurgeAuditTrail = "PURGE_AUDIT_TRAIL"
)

// ListFilter narrows the admin audit listing.
type ListFilter struct {
	ActorID  *id.UserID
	Action   string
	Severity Severity
	Since    time.Time
	Until    time.Time
}
