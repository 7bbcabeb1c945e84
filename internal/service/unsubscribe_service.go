package service

import (
	"context"
	"errors"
	"strings"

	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/model"
)

// UnsubscribeService removes a recipient through the token in their
// unsubscribe link. Repeating a successful unsubscribe reports not found.
type UnsubscribeService struct {
	directory *DirectoryService
	audit     auditTrail
	log       *logger.Logger
}

// NewUnsubscribeService creates a new UnsubscribeService. audit may be nil.
func NewUnsubscribeService(directory *DirectoryService, audit AuditRecorder, log *logger.Logger) *UnsubscribeService {
	l := log.WithComponent("unsubscribe")
	return &UnsubscribeService{
		directory: directory,
		audit:     auditTrail{recorder: audit, log: l},
		log:       l,
	}
}

// Unsubscribe removes the recipient holding token
func (s *UnsubscribeService) Unsubscribe(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}

	out := s.directory.RemoveByUUID(ctx, token)
	if out.Success && out.DeletedCount > 0 {
		s.audit.record(ctx, model.AuditActionRecipientUnsubscribed, strings.ToLower(token), nil)
		return nil
	}
	if out.Err != nil && !errors.Is(out.Err, ErrInvalidIdentifier) {
		s.log.Error().Err(out.Err).Msg("unsubscribe lookup failed")
	}
	return ErrNotFoundOrAlreadyRemoved
}
