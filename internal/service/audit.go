package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/model"
)

// AuditRecorder persists audit entries
type AuditRecorder interface {
	Create(ctx context.Context, log *model.AuditLog) error
}

// auditTrail writes every entry to the log and, when a recorder is
// configured, to storage. Storage failures never fail the caller.
type auditTrail struct {
	recorder AuditRecorder
	log      *logger.Logger
}

func (a auditTrail) record(ctx context.Context, action, resourceID string, metadata map[string]interface{}) {
	a.log.AuditLog(action, model.AuditResourceRecipient, resourceID, metadata)
	if a.recorder == nil {
		return
	}

	entry := &model.AuditLog{
		ID:           uuid.NewString(),
		Action:       action,
		ResourceType: model.AuditResourceRecipient,
		ResourceID:   resourceID,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	// the triggering request may already be finished
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.recorder.Create(ctx, entry); err != nil {
		a.log.Warn().Err(err).Str("action", action).Msg("failed to persist audit log")
	}
}
