package orchestrator

import (
	"context"
	"time"

	"github.com/orito-ai/orito-core/internal/store"
	"github.com/orito-ai/orito-core/pkg/models"
)

// audit appends a best-effort audit log entry (spec §6.3, §7). A failure to
// persist never cascades into the turn itself: it is logged and swallowed,
// matching the orchestrator's graceful-degradation posture for everything
// outside the core agent pipeline.
func (o *Orchestrator) audit(ctx context.Context, octx *models.OrchestratorContext, actionID string, details map[string]any) {
	if o.store == nil {
		return
	}
	entry := store.AuditEntry{
		ChatID:    octx.ChatID,
		SessionID: octx.SessionID,
		UserID:    octx.UserID,
		ActionID:  actionID,
		CreatedAt: time.Now(),
		Details:   details,
	}
	if err := o.store.AppendAuditLog(ctx, entry); err != nil {
		o.logger.WarnContext(ctx, "audit log append failed", "action", actionID, "error", err)
	}
}

// auditCompleted records the turn's terminal outcome, including its
// classification and how many agents it spawned.
func (o *Orchestrator) auditCompleted(ctx context.Context, octx *models.OrchestratorContext, start time.Time, classification models.Classification, agentsSpawned int) {
	o.audit(ctx, octx, "process_completed", map[string]any{
		"durationMs":    time.Since(start).Milliseconds(),
		"intent":        string(classification.Intent),
		"complexity":    string(classification.Complexity),
		"agentsSpawned": agentsSpawned,
	})
}
