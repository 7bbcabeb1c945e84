package email

import (
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// reservedHeaders are written by Compose and cannot be set through Message.Headers
var reservedHeaders = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Bcc":                       true,
	"Subject":                   true,
	"Date":                      true,
	"Message-Id":                true,
	"Mime-Version":              true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
}

// ComposeOptions tunes message serialization
type ComposeOptions struct {
	// IncludeBcc writes a Bcc header, for providers that read recipients
	// from the message instead of an SMTP envelope.
	IncludeBcc bool
	MessageID  string
	Date       time.Time
}

// Envelope is the SMTP routing information for a message
type Envelope struct {
	From string
	To   []string
}

// Composed is a serialized message with its envelope
type Composed struct {
	MessageID string
	Envelope  Envelope
	Raw       []byte
}

// Compose serializes msg as an RFC 5322 message. Headers must already
// include any list headers; use BuildHeaders first. Long header fields are
// folded and non-ASCII subjects are written as encoded words.
func Compose(msg Message, headers map[string]string, opts ComposeOptions) (*Composed, error) {
	if !msg.HasRecipients() {
		return nil, ErrNoRecipients
	}

	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q: %v", ErrInvalidAddress, msg.From, err)
	}
	to, err := parseAddressList(msg.To)
	if err != nil {
		return nil, err
	}
	cc, err := parseAddressList(msg.Cc)
	if err != nil {
		return nil, err
	}
	bcc, err := parseAddressList(msg.Bcc)
	if err != nil {
		return nil, err
	}

	// Fields are written newest first, so extra headers go in before the
	// standard ones to land below them.
	var h mail.Header
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names {
		if reservedHeaders[textproto.CanonicalMIMEHeaderKey(name)] {
			continue
		}
		value := headers[name]
		if !validHeaderName(name) || strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, name)
		}
		h.Set(name, value)
	}

	if opts.MessageID != "" {
		h.SetMessageID(strings.Trim(opts.MessageID, "<>"))
	} else if err := h.GenerateMessageIDWithHostname(addressDomain(from.Address)); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetSubject(msg.Subject)
	if opts.IncludeBcc {
		h.SetAddressList("Bcc", bcc)
	}
	h.SetAddressList("Cc", cc)
	h.SetAddressList("To", to)
	h.SetAddressList("From", []*mail.Address{from})

	var buf bytes.Buffer
	if err := writeBody(&buf, h, msg.Text, msg.HTML); err != nil {
		return nil, err
	}

	rcpts := make([]string, 0, len(to)+len(cc)+len(bcc))
	for _, list := range [][]*mail.Address{to, cc, bcc} {
		for _, a := range list {
			rcpts = append(rcpts, a.Address)
		}
	}

	return &Composed{
		MessageID: h.Get("Message-Id"),
		Envelope:  Envelope{From: from.Address, To: rcpts},
		Raw:       buf.Bytes(),
	}, nil
}

func writeBody(buf *bytes.Buffer, h mail.Header, text, html string) error {
	if text != "" && html != "" {
		iw, err := mail.CreateInlineWriter(buf, h)
		if err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := writePart(iw, "text/plain", text); err != nil {
			return err
		}
		if err := writePart(iw, "text/html", html); err != nil {
			return err
		}
		return iw.Close()
	}

	contentType, body := "text/plain", text
	if html != "" {
		contentType, body = "text/html", html
	}
	h.SetContentType(contentType, map[string]string{"charset": "UTF-8"})
	w, err := mail.CreateSingleInlineWriter(buf, h)
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode body: %w", err)
	}
	return w.Close()
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "UTF-8"})
	w, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode %s part: %w", contentType, err)
	}
	return w.Close()
}

func parseAddressList(addrs []string) ([]*mail.Address, error) {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		parsed, err := mail.ParseAddress(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, a, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r > '~' || r == ':' {
			return false
		}
	}
	return true
}

func addressDomain(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
