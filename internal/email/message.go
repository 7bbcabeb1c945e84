package email

import (
	"context"
	"errors"
)

var (
	// ErrNoRecipients is returned when a message has no To, Cc or Bcc address
	ErrNoRecipients = errors.New("no recipients specified (to/cc/bcc)")
	// ErrInvalidHeader is returned for header names or values that would break the message
	ErrInvalidHeader = errors.New("invalid header")
	// ErrInvalidAddress is returned when an address cannot be parsed
	ErrInvalidAddress = errors.New("invalid address")
)

// Transport submits composed messages to a mail provider.
type Transport interface {
	// Send submits one message and reports what the provider accepted.
	Send(ctx context.Context, msg Message) (*SendInfo, error)
	// Verify checks connectivity and credentials without sending anything.
	Verify(ctx context.Context) error
}

// Message is one outbound email
type Message struct {
	From        string            `json:"from,omitempty"`
	To          []string          `json:"to,omitempty"`
	Cc          []string          `json:"cc,omitempty"`
	Bcc         []string          `json:"bcc,omitempty"`
	Subject     string            `json:"subject"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	MailingList *MailingList      `json:"list,omitempty"`
}

// HasRecipients reports whether at least one of To, Cc or Bcc is set
func (m Message) HasRecipients() bool {
	return len(m.To)+len(m.Cc)+len(m.Bcc) > 0
}

// MailingList describes the list a message is sent on behalf of
type MailingList struct {
	ListID              string `json:"id,omitempty"`
	ListPost            string `json:"post,omitempty"`
	Unsubscribe         string `json:"unsubscribe,omitempty"`
	OneClickUnsubscribe bool   `json:"oneClick,omitempty"`
	Precedence          string `json:"precedence,omitempty"`
	// AutoSubmitted is tri-state: nil omits the header
	AutoSubmitted *bool `json:"autoSubmitted,omitempty"`
}

// SendInfo is the provider's report for a submitted message
type SendInfo struct {
	MessageID string   `json:"messageId"`
	Accepted  []string `json:"accepted"`
	Rejected  []string `json:"rejected"`
	Provider  string   `json:"provider"`
}
