package sqlitestore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/orito-ai/orito-core/internal/store"
	"github.com/orito-ai/orito-core/pkg/models"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{db: db}, mock
}

func TestStore_UpdateChatSystemProfile(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectExec("INSERT INTO chats").
		WithArgs("chat-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.UpdateChatSystemProfile(context.Background(), "chat-1", models.SystemProfile{Distro: "Ubuntu"})
	if err != nil {
		t.Fatalf("UpdateChatSystemProfile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStore_FindChatByID_NotFound(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectQuery("SELECT context_profile, legacy_profile FROM chats").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindChatByID(context.Background(), "missing")
	if err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_FindChatByID_Decodes(t *testing.T) {
	s, mock := setupMockStore(t)
	rows := sqlmock.NewRows([]string{"context_profile", "legacy_profile"}).
		AddRow(`{"distro":"Fedora"}`, `{"distro":"Fedora"}`)
	mock.ExpectQuery("SELECT context_profile, legacy_profile FROM chats").
		WithArgs("chat-2").
		WillReturnRows(rows)

	cc, err := s.FindChatByID(context.Background(), "chat-2")
	if err != nil {
		t.Fatalf("FindChatByID: %v", err)
	}
	if cc.ContextProfile == nil || cc.ContextProfile.Distro != "Fedora" {
		t.Fatalf("unexpected profile: %+v", cc.ContextProfile)
	}
}

func TestStore_AppendAuditLog(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs(
			"action-1", "chat-1", "session-1", "user-1",
			"apt install nginx", "low", "approved", "hmac-value",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.AppendAuditLog(context.Background(), store.AuditEntry{
		ActionID:     "action-1",
		ChatID:       "chat-1",
		SessionID:    "session-1",
		UserID:       "user-1",
		Command:      "apt install nginx",
		Risk:         models.RiskLow,
		UserDecision: "approved",
		HMAC:         "hmac-value",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("AppendAuditLog: %v", err)
	}
}

func TestStore_FindUserPreferences_Defaults(t *testing.T) {
	s, mock := setupMockStore(t)
	mock.ExpectQuery("SELECT default_distro, default_shell, font_size, response_style, custom_instructions").
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)

	prefs, err := s.FindUserPreferences(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("FindUserPreferences: %v", err)
	}
	if prefs.UserID != "user-1" {
		t.Fatalf("expected zero-value preferences for unknown user, got %+v", prefs)
	}
}
