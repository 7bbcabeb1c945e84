package service

import (
	"context"
	"fmt"

	"github.com/simplemailer/simplemailer/internal/config"
	"github.com/simplemailer/simplemailer/internal/email"
	"github.com/simplemailer/simplemailer/internal/logger"
)

// SendOutcome is the per-message result of a dispatch
type SendOutcome struct {
	Success bool            `json:"success"`
	Info    *email.SendInfo `json:"info,omitempty"`
	Message email.Message   `json:"message"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Err     error           `json:"-"`
}

// Dispatcher sends a batch of messages
type Dispatcher interface {
	Dispatch(ctx context.Context, msgs []email.Message) []SendOutcome
}

// DispatchService sends messages one at a time over the shared transport.
// A failed message never stops the rest of the batch.
type DispatchService struct {
	transport email.Transport
	from      string
	log       *logger.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(transport email.Transport, cfg *config.Config, log *logger.Logger) *DispatchService {
	return &DispatchService{
		transport: transport,
		from:      cfg.SMTP.FromAddress(),
		log:       log.WithComponent("dispatch"),
	}
}

// Dispatch sends msgs sequentially, returning one outcome per message
func (s *DispatchService) Dispatch(ctx context.Context, msgs []email.Message) []SendOutcome {
	outcomes := make([]SendOutcome, len(msgs))
	for i, msg := range msgs {
		outcomes[i] = s.send(ctx, msg)
	}
	return outcomes
}

func (s *DispatchService) send(ctx context.Context, msg email.Message) SendOutcome {
	out := SendOutcome{Message: msg}
	fail := func(err error) SendOutcome {
		out.Err, out.Error, out.Code = err, err.Error(), ErrorCode(err)
		return out
	}

	if !msg.HasRecipients() {
		return fail(ErrNoRecipient)
	}

	prepared := msg
	prepared.Headers = email.BuildHeaders(msg.Headers, msg.MailingList)
	if prepared.From == "" {
		prepared.From = s.from
	}

	info, err := s.transport.Send(ctx, prepared)
	if err != nil {
		s.log.Warn().
			Err(err).
			Strs("to", redactAll(msg.To)).
			Str("subject", msg.Subject).
			Msg("failed to send message")
		return fail(fmt.Errorf("%w: %w", ErrTransport, err))
	}

	out.Success = true
	out.Info = info
	return out
}

// VerifyTransport reports whether the transport can reach and authenticate
// with its provider. Nothing is sent.
func (s *DispatchService) VerifyTransport(ctx context.Context) bool {
	if err := s.transport.Verify(ctx); err != nil {
		s.log.Warn().Err(err).Msg("transport verification failed")
		return false
	}
	return true
}

func redactAll(addrs []string) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = logger.RedactEmail(a)
	}
	return out
}
