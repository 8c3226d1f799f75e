// Package store defines the Store capability (spec §6.3): persistence for
// chat system-profile state, the audit log, and user preferences.
// Concrete databases are out of scope per spec.md's Non-goals; this
// package only declares the contract plus one optional, concrete
// implementation (sqlitestore) that exercises it.
package store

import (
	"context"
	"time"

	"github.com/orito-ai/orito-core/pkg/models"
)

// ChatContext is the persisted per-chat document shape of spec §6.3: the
// current systemProfile nested under context plus a legacy top-level
// mirror for backward-compatible readers.
type ChatContext struct {
	ID                  string
	ContextProfile      *models.SystemProfile // context.systemProfile
	LegacySystemProfile *models.SystemProfile // legacy systemProfile
}

// AuditEntry is one append-only audit log record (spec §6.3).
type AuditEntry struct {
	ChatID       string
	SessionID    string
	UserID       string
	ActionID     string // unique
	Command      string
	Risk         models.Risk
	UserDecision string
	HMAC         string
	CreatedAt    time.Time
	Details      map[string]any
}

// UserPreferences is the find-by-userId shape of spec §6.3.
type UserPreferences struct {
	UserID             string
	DefaultDistro      string
	DefaultShell       string
	FontSize           int
	ResponseStyle      models.ResponseStyle
	CustomInstructions string
}

// SystemConfiguration projects the subset of preferences the Validator and
// prompt renderer need, mirroring UserPreferences.getSystemConfiguration().
func (p UserPreferences) SystemConfiguration() map[string]string {
	cfg := map[string]string{}
	if p.DefaultDistro != "" {
		cfg["distro"] = p.DefaultDistro
	}
	if p.DefaultShell != "" {
		cfg["shell"] = p.DefaultShell
	}
	return cfg
}

// Store is the persistence capability the orchestrator and profile
// collector depend on.
type Store interface {
	FindChatByID(ctx context.Context, chatID string) (ChatContext, error)
	UpdateChatSystemProfile(ctx context.Context, chatID string, profile models.SystemProfile) error

	AppendAuditLog(ctx context.Context, entry AuditEntry) error

	FindUserPreferences(ctx context.Context, userID string) (UserPreferences, error)
}

// ErrNotFound is returned by FindChatByID when the requested chat does not
// exist. For a user with no stored preferences, FindUserPreferences may
// return ErrNotFound or zero-value preferences with a nil error;
// sqlitestore does the latter.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "store: not found" }
