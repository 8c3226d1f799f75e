// Package sqlitestore is a concrete, optional Store implementation (spec
// §6.3) backed by the pure-Go modernc.org/sqlite driver, matching the
// teacher's preference for a cgo-free SQLite backend
// (internal/memory/backend/sqlitevec.Backend).
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orito-ai/orito-core/internal/store"
	"github.com/orito-ai/orito-core/pkg/models"
)

// Store implements store.Store over a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Config configures a Store.
type Config struct {
	// Path to the database file; ":memory:" for an ephemeral store.
	Path string
}

// New opens (creating if needed) the database at cfg.Path and migrates
// its schema.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			context_profile TEXT,
			legacy_profile TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			action_id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			user_id TEXT,
			command TEXT NOT NULL,
			risk TEXT NOT NULL,
			user_decision TEXT NOT NULL,
			hmac TEXT NOT NULL,
			details TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY,
			default_distro TEXT,
			default_shell TEXT,
			font_size INTEGER,
			response_style TEXT,
			custom_instructions TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate sqlite store: %w", err)
		}
	}
	return nil
}

// FindChatByID returns the chat's persisted profile state.
func (s *Store) FindChatByID(ctx context.Context, chatID string) (store.ChatContext, error) {
	var contextJSON, legacyJSON sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT context_profile, legacy_profile FROM chats WHERE id = ?`, chatID)
	if err := row.Scan(&contextJSON, &legacyJSON); err != nil {
		if err == sql.ErrNoRows {
			return store.ChatContext{}, store.ErrNotFound
		}
		return store.ChatContext{}, fmt.Errorf("find chat %s: %w", chatID, err)
	}

	cc := store.ChatContext{ID: chatID}
	if contextJSON.Valid && contextJSON.String != "" {
		var p models.SystemProfile
		if err := json.Unmarshal([]byte(contextJSON.String), &p); err != nil {
			return store.ChatContext{}, fmt.Errorf("decode context profile: %w", err)
		}
		cc.ContextProfile = &p
	}
	if legacyJSON.Valid && legacyJSON.String != "" {
		var p models.SystemProfile
		if err := json.Unmarshal([]byte(legacyJSON.String), &p); err != nil {
			return store.ChatContext{}, fmt.Errorf("decode legacy profile: %w", err)
		}
		cc.LegacySystemProfile = &p
	}
	return cc, nil
}

// UpdateChatSystemProfile $set's context.systemProfile and the legacy
// top-level systemProfile mirror (spec §6.3).
func (s *Store) UpdateChatSystemProfile(ctx context.Context, chatID string, profile models.SystemProfile) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chats (id, context_profile, legacy_profile) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET context_profile = excluded.context_profile, legacy_profile = excluded.legacy_profile
	`, chatID, string(b), string(b))
	if err != nil {
		return fmt.Errorf("update chat %s profile: %w", chatID, err)
	}
	return nil
}

// AppendAuditLog inserts an append-only audit record, keyed by the
// caller-supplied unique ActionID.
func (s *Store) AppendAuditLog(ctx context.Context, entry store.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (action_id, chat_id, session_id, user_id, command, risk, user_decision, hmac, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ActionID, entry.ChatID, entry.SessionID, entry.UserID, entry.Command, string(entry.Risk), entry.UserDecision, entry.HMAC, string(details), createdAt)
	if err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// FindUserPreferences returns the stored preferences for userID, or the
// zero value if none are on file.
func (s *Store) FindUserPreferences(ctx context.Context, userID string) (store.UserPreferences, error) {
	var distro, shell, style, custom sql.NullString
	var fontSize sql.NullInt64
	row := s.db.QueryRowContext(ctx, `
		SELECT default_distro, default_shell, font_size, response_style, custom_instructions
		FROM user_preferences WHERE user_id = ?
	`, userID)
	if err := row.Scan(&distro, &shell, &fontSize, &style, &custom); err != nil {
		if err == sql.ErrNoRows {
			return store.UserPreferences{UserID: userID}, nil
		}
		return store.UserPreferences{}, fmt.Errorf("find preferences for %s: %w", userID, err)
	}
	return store.UserPreferences{
		UserID:             userID,
		DefaultDistro:      distro.String,
		DefaultShell:       shell.String,
		FontSize:           int(fontSize.Int64),
		ResponseStyle:      models.ResponseStyle(style.String),
		CustomInstructions: custom.String,
	}, nil
}
