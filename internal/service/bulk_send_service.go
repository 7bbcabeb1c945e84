package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/simplemailer/simplemailer/internal/config"
	"github.com/simplemailer/simplemailer/internal/email"
	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/model"
)

// Bulk send defaults
const (
	DefaultSubject    = "Notification from Simple Mailer"
	DefaultListID     = "simple-mailer"
	DefaultPrecedence = "bulk"
)

// SendAllRequest is the body of a send-to-everyone request
type SendAllRequest struct {
	Subject string `json:"subject,omitempty"`
	Text    string `json:"text,omitempty"`
}

// SendAllResult reports what was queued
type SendAllResult struct {
	Queued int    `json:"queued"`
	RunID  string `json:"runId"`
}

// BulkSendService sends a message to every recipient in the background.
// Runs are not awaited on shutdown.
type BulkSendService struct {
	directory  *DirectoryService
	dispatcher Dispatcher
	mailing    config.MailingConfig
	observers  []DispatchObserver
	log        *logger.Logger
}

// NewBulkSendService creates a new BulkSendService
func NewBulkSendService(
	directory *DirectoryService,
	dispatcher Dispatcher,
	cfg *config.Config,
	log *logger.Logger,
	observers ...DispatchObserver,
) *BulkSendService {
	return &BulkSendService{
		directory:  directory,
		dispatcher: dispatcher,
		mailing:    cfg.Mailing,
		observers:  observers,
		log:        log.WithComponent("bulk_send"),
	}
}

// SendAll snapshots the directory, starts the dispatch and returns at once
// with the number of messages queued. Observers see the run start before
// SendAll returns.
func (s *BulkSendService) SendAll(ctx context.Context, req SendAllRequest) (*SendAllResult, error) {
	recipients, err := s.directory.List(ctx, model.ListFilter{})
	if err != nil {
		return nil, err
	}

	msgs := s.BuildMessages(recipients, req)
	runID := uuid.NewString()
	runCtx := context.WithoutCancel(ctx)

	started := time.Now().UTC()
	for _, o := range s.observers {
		o.OnDispatchStart(runCtx, runID, len(msgs))
	}

	go s.run(runCtx, runID, started, recipients, msgs)

	return &SendAllResult{Queued: len(msgs), RunID: runID}, nil
}

// BuildMessages renders one message per recipient
func (s *BulkSendService) BuildMessages(recipients []*model.Recipient, req SendAllRequest) []email.Message {
	subject := req.Subject
	if subject == "" {
		subject = s.mailing.DefaultSubject
	}
	if subject == "" {
		subject = DefaultSubject
	}
	listID := s.mailing.ListID
	if listID == "" {
		listID = DefaultListID
	}
	autoSubmitted := false

	msgs := make([]email.Message, len(recipients))
	for i, r := range recipients {
		unsubscribeURL := s.mailing.UnsubscribeURL(r.UUID)
		msgs[i] = email.Message{
			To:      []string{r.Email},
			Subject: subject,
			Text:    req.Text,
			HTML:    email.RecipientHTML(r.Name, unsubscribeURL),
			MailingList: &email.MailingList{
				ListID:              listID,
				Unsubscribe:         "<" + unsubscribeURL + ">",
				OneClickUnsubscribe: true,
				AutoSubmitted:       &autoSubmitted,
				Precedence:          DefaultPrecedence,
			},
		}
	}
	return msgs
}

func (s *BulkSendService) run(ctx context.Context, runID string, started time.Time, recipients []*model.Recipient, msgs []email.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Str("run_id", runID).Msg("bulk send aborted")
		}
	}()

	outcomes := s.dispatcher.Dispatch(ctx, msgs)

	report := DispatchReport{
		RunID:      runID,
		Total:      len(msgs),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	for i, out := range outcomes {
		if out.Success {
			report.Sent++
			continue
		}
		report.Failed++
		report.Failures = append(report.Failures, DispatchFailure{
			Recipient: logger.RedactEmail(recipients[i].Email),
			Code:      out.Code,
			Error:     out.Error,
		})
	}

	for _, o := range s.observers {
		o.OnDispatchComplete(ctx, report)
	}
}
