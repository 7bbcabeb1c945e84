package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/simplemailer/simplemailer/internal/config"
	"github.com/simplemailer/simplemailer/internal/email"
	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/model"
	"github.com/simplemailer/simplemailer/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: "memory", QueryTimeout: time.Second},
		SMTP:  config.SMTPConfig{User: "sender@x.io"},
		Mailing: config.MailingConfig{
			BaseURL: "https://mail.example.com/",
			ListID:  "simple-mailer",
		},
	}
}

func newTestDirectory(t *testing.T) (*DirectoryService, *repository.MemoryRecipientRepository, *memoryAudit) {
	t.Helper()
	repo := repository.NewMemoryRecipientRepository()
	audit := &memoryAudit{}
	return NewDirectoryService(repo, audit, testConfig(), logger.Nop()), repo, audit
}

// memoryAudit collects audit entries
type memoryAudit struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func (a *memoryAudit) Create(_ context.Context, entry *model.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

// faultyStore wraps a store and injects errors
type faultyStore struct {
	RecipientStore
	mu            sync.Mutex
	failEmail     string
	duplicateOnce bool
	upserts       int
}

var errStoreDown = errors.New("store unavailable")

func (f *faultyStore) Upsert(ctx context.Context, name, addr string) (*model.Recipient, bool, error) {
	f.mu.Lock()
	f.upserts++
	dup := f.duplicateOnce
	f.duplicateOnce = false
	f.mu.Unlock()

	if addr == f.failEmail {
		return nil, false, errStoreDown
	}
	if dup {
		return nil, false, repository.ErrDuplicate
	}
	return f.RecipientStore.Upsert(ctx, name, addr)
}

func (f *faultyStore) Delete(ctx context.Context, field repository.Field, value string) (int64, error) {
	if value == f.failEmail {
		return 0, errStoreDown
	}
	return f.RecipientStore.Delete(ctx, field, value)
}

// fakeTransport records sends and fails for chosen recipients
type fakeTransport struct {
	mu        sync.Mutex
	sent      []email.Message
	failFor   map[string]bool
	verifyErr error
}

func (f *fakeTransport) Send(_ context.Context, msg email.Message) (*email.SendInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, to := range msg.To {
		if f.failFor[to] {
			return nil, errors.New("550 mailbox unavailable")
		}
	}
	f.sent = append(f.sent, msg)
	return &email.SendInfo{MessageID: "<m@x.io>", Accepted: msg.To, Rejected: []string{}, Provider: "fake"}, nil
}

func (f *fakeTransport) Verify(context.Context) error { return f.verifyErr }

func (f *fakeTransport) messages() []email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]email.Message(nil), f.sent...)
}

// chanObserver forwards reports to a channel
type chanObserver struct {
	started chan int
	done    chan DispatchReport
}

func newChanObserver() *chanObserver {
	return &chanObserver{started: make(chan int, 1), done: make(chan DispatchReport, 1)}
}

func (o *chanObserver) OnDispatchStart(_ context.Context, _ string, total int) { o.started <- total }

func (o *chanObserver) OnDispatchComplete(_ context.Context, r DispatchReport) { o.done <- r }

func (o *chanObserver) wait(t *testing.T) DispatchReport {
	t.Helper()
	select {
	case r := <-o.done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not complete")
		return DispatchReport{}
	}
}

func strPtr(s string) *string { return &s }
