package service

import (
	"context"
	"strings"
	"testing"

	"github.com/simplemailer/simplemailer/internal/email"
	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkSendService_QueuesEveryRecipient(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	ctx := context.Background()
	added := dir.Add(ctx, []model.AddInput{
		{Name: "Ann", Email: "a@x.io"},
		{Email: "b@x.io"},
		{Name: "<Cat>", Email: "c@x.io"},
	})
	uuids := map[string]string{}
	for _, a := range added {
		uuids[a.Recipient.Email] = a.Recipient.UUID
	}

	tr := &fakeTransport{}
	obs := newChanObserver()
	svc := NewBulkSendService(dir, NewDispatchService(tr, testConfig(), logger.Nop()), testConfig(), logger.Nop(), obs)

	res, err := svc.SendAll(ctx, SendAllRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Queued)
	assert.NotEmpty(t, res.RunID)

	report := obs.wait(t)
	assert.Equal(t, res.RunID, report.RunID)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Sent)
	assert.Zero(t, report.Failed)

	sent := tr.messages()
	require.Len(t, sent, 3)
	for _, m := range sent {
		require.Len(t, m.To, 1)
		want := "<https://mail.example.com/unsubscribe?uuid=" + uuids[m.To[0]] + ">"
		assert.Equal(t, want, m.Headers[email.HeaderListUnsubscribe])
		assert.Equal(t, email.OneClickUnsubscribeValue, m.Headers[email.HeaderListUnsubscribePost])
		assert.Equal(t, "simple-mailer", m.Headers[email.HeaderListID])
		assert.Equal(t, "bulk", m.Headers[email.HeaderPrecedence])
		assert.Equal(t, "no", m.Headers[email.HeaderAutoSubmitted])
		assert.Equal(t, DefaultSubject, m.Subject)
		assert.Equal(t, "", m.Text)
		assert.Equal(t, "sender@x.io", m.From)
	}
}

func TestBulkSendService_EmptyDirectory(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	obs := newChanObserver()
	svc := NewBulkSendService(dir, NewDispatchService(&fakeTransport{}, testConfig(), logger.Nop()), testConfig(), logger.Nop(), obs)

	res, err := svc.SendAll(context.Background(), SendAllRequest{Subject: "s"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Queued)
	assert.Equal(t, 0, obs.wait(t).Total)
}

func TestBulkSendService_ReportsFailures(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	ctx := context.Background()
	dir.Add(ctx, []model.AddInput{{Email: "good@x.io"}, {Email: "bad@x.io"}})

	tr := &fakeTransport{failFor: map[string]bool{"bad@x.io": true}}
	obs := newChanObserver()
	svc := NewBulkSendService(dir, NewDispatchService(tr, testConfig(), logger.Nop()), testConfig(), logger.Nop(), obs)

	res, err := svc.SendAll(ctx, SendAllRequest{Subject: "Hi", Text: "t"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queued)

	report := obs.wait(t)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "ba***@x.io", report.Failures[0].Recipient)
	assert.Equal(t, CodeTransport, report.Failures[0].Code)
}

func TestBulkSendService_SurvivesRequestCancellation(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	dir.Add(context.Background(), []model.AddInput{{Email: "a@x.io"}})

	tr := &fakeTransport{}
	obs := newChanObserver()
	svc := NewBulkSendService(dir, NewDispatchService(tr, testConfig(), logger.Nop()), testConfig(), logger.Nop(), obs)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.SendAll(ctx, SendAllRequest{})
	require.NoError(t, err)
	cancel()

	assert.Equal(t, 1, obs.wait(t).Sent)
}

// gatedTransport holds every send until release is closed
type gatedTransport struct {
	release chan struct{}
}

func (g *gatedTransport) Send(ctx context.Context, msg email.Message) (*email.SendInfo, error) {
	select {
	case <-g.release:
		return &email.SendInfo{MessageID: "<m@x.io>", Accepted: msg.To, Rejected: []string{}, Provider: "gated"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedTransport) Verify(context.Context) error { return nil }

func TestBulkSendService_RunRecordedBeforeReturn(t *testing.T) {
	dir, _, _ := newTestDirectory(t)
	ctx := context.Background()
	dir.Add(ctx, []model.AddInput{{Email: "a@x.io"}, {Email: "b@x.io"}})

	rec, _, _ := setupRunRecorder(t)
	tr := &gatedTransport{release: make(chan struct{})}
	obs := newChanObserver()
	svc := NewBulkSendService(dir, NewDispatchService(tr, testConfig(), logger.Nop()), testConfig(), logger.Nop(), rec, obs)

	res, err := svc.SendAll(ctx, SendAllRequest{})
	require.NoError(t, err)

	select {
	case total := <-obs.started:
		assert.Equal(t, 2, total)
	default:
		t.Fatal("run start was not observed before SendAll returned")
	}

	run, err := rec.Run(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Equal(t, 2, run.Total)
	assert.Nil(t, run.FinishedAt)

	close(tr.release)
	report := obs.wait(t)
	assert.Equal(t, 2, report.Sent)

	run, err = rec.Run(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, report.StartedAt.Unix(), run.StartedAt.Unix())
}

func TestBulkSendService_BuildMessages(t *testing.T) {
	cfg := testConfig()
	cfg.Mailing.BaseURL = "http://localhost:8080///"
	cfg.Mailing.ListID = ""
	dir, _, _ := newTestDirectory(t)
	svc := NewBulkSendService(dir, nil, cfg, logger.Nop())

	msgs := svc.BuildMessages([]*model.Recipient{{Email: "a@x.io", Name: "<b>Ann</b>", UUID: "U"}}, SendAllRequest{Subject: "S", Text: "T"})
	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, "S", m.Subject)
	assert.Equal(t, "T", m.Text)
	assert.Equal(t, "<http://localhost:8080/unsubscribe?uuid=U>", m.MailingList.Unsubscribe)
	assert.Equal(t, DefaultListID, m.MailingList.ListID)
	assert.True(t, m.MailingList.OneClickUnsubscribe)
	require.NotNil(t, m.MailingList.AutoSubmitted)
	assert.False(t, *m.MailingList.AutoSubmitted)
	assert.Contains(t, m.HTML, "&lt;b&gt;Ann&lt;/b&gt;")
	assert.False(t, strings.Contains(m.HTML, "<b>Ann"))
}
