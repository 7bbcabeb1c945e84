package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPConfig holds the settings for an SMTP submission server
type SMTPConfig struct {
	Host string
	Port int
	// Secure dials with implicit TLS instead of upgrading with STARTTLS
	Secure bool
	// RequireTLS fails plain connections whose server does not offer STARTTLS
	RequireTLS bool
	// InsecureSkipVerify accepts any server certificate
	InsecureSkipVerify bool
	Username           string
	Password           string
	// LocalName is sent in EHLO
	LocalName string
	Timeout   time.Duration
}

// SMTPTransport submits messages over SMTP, one session per message.
type SMTPTransport struct {
	cfg       SMTPConfig
	addr      string
	tlsConfig *tls.Config
}

// NewSMTPTransport creates an SMTP transport. No connection is opened.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp: invalid port %d", cfg.Port)
	}
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPTransport{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		tlsConfig: &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}, nil
}

// connect opens an authenticated session, upgraded to TLS when the server
// offers it. The client is closed when ctx ends.
func (t *SMTPTransport) connect(ctx context.Context) (*smtp.Client, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	c, greeted, err := t.dial(ctx)
	if err != nil {
		return nil, nil, err
	}
	c.CommandTimeout = t.cfg.Timeout
	c.SubmissionTimeout = t.cfg.Timeout

	stop := context.AfterFunc(ctx, func() { c.Close() })
	release := func() {
		stop()
		c.Close()
	}

	if !greeted {
		if err := c.Hello(t.cfg.LocalName); err != nil {
			release()
			return nil, nil, fmt.Errorf("smtp: hello: %w", err)
		}
	}

	if t.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			release()
			return nil, nil, errors.New("smtp: server does not support AUTH")
		}
		if err := c.Auth(sasl.NewPlainClient("", t.cfg.Username, t.cfg.Password)); err != nil {
			release()
			return nil, nil, fmt.Errorf("smtp: auth: %w", err)
		}
	}

	return c, release, nil
}

// dial returns a client on the configured security level. greeted reports
// whether EHLO was already sent on the returned client.
func (t *SMTPTransport) dial(ctx context.Context) (*smtp.Client, bool, error) {
	dialer := &net.Dialer{Timeout: t.cfg.Timeout}

	if t.cfg.Secure {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: t.tlsConfig}
		conn, err := tlsDialer.DialContext(ctx, "tcp", t.addr)
		if err != nil {
			return nil, false, fmt.Errorf("smtp: dial %s: %w", t.addr, err)
		}
		return smtp.NewClient(conn), false, nil
	}

	if t.cfg.RequireTLS {
		c, err := t.dialStartTLS(ctx, dialer)
		return c, false, err
	}

	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, false, fmt.Errorf("smtp: dial %s: %w", t.addr, err)
	}
	plain := smtp.NewClient(conn)
	if err := plain.Hello(t.cfg.LocalName); err != nil {
		plain.Close()
		return nil, false, fmt.Errorf("smtp: hello: %w", err)
	}
	if ok, _ := plain.Extension("STARTTLS"); !ok {
		return plain, true, nil
	}

	// STARTTLS is negotiated on a fresh connection.
	_ = plain.Quit()
	plain.Close()
	c, err := t.dialStartTLS(ctx, dialer)
	return c, false, err
}

func (t *SMTPTransport) dialStartTLS(ctx context.Context, dialer *net.Dialer) (*smtp.Client, error) {
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", t.addr, err)
	}
	c, err := smtp.NewClientStartTLS(conn, t.tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("smtp: starttls: %w", err)
	}
	return c, nil
}

// Send submits msg. Recipients refused at RCPT are reported in Rejected;
// the send fails only when every recipient is refused.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) (*SendInfo, error) {
	composed, err := Compose(msg, msg.Headers, ComposeOptions{})
	if err != nil {
		return nil, err
	}

	c, release, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.Mail(composed.Envelope.From, nil); err != nil {
		return nil, fmt.Errorf("smtp: mail from: %w", err)
	}

	info := &SendInfo{
		MessageID: composed.MessageID,
		Accepted:  make([]string, 0, len(composed.Envelope.To)),
		Rejected:  make([]string, 0),
		Provider:  "smtp",
	}
	var lastErr error
	for _, rcpt := range composed.Envelope.To {
		if err := c.Rcpt(rcpt, nil); err != nil {
			var smtpErr *smtp.SMTPError
			if !errors.As(err, &smtpErr) {
				return nil, fmt.Errorf("smtp: rcpt to: %w", err)
			}
			info.Rejected = append(info.Rejected, rcpt)
			lastErr = err
			continue
		}
		info.Accepted = append(info.Accepted, rcpt)
	}
	if len(info.Accepted) == 0 {
		return nil, fmt.Errorf("smtp: all recipients rejected: %w", lastErr)
	}

	w, err := c.Data()
	if err != nil {
		return nil, fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := w.Write(composed.Raw); err != nil {
		w.Close()
		return nil, fmt.Errorf("smtp: write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("smtp: message refused: %w", err)
	}

	// The message is queued once DATA is accepted; a failed QUIT does not undo that.
	_ = c.Quit()
	return info, nil
}

// Verify opens an authenticated session and issues NOOP.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	c, release, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := c.Noop(); err != nil {
		return fmt.Errorf("smtp: noop: %w", err)
	}
	return c.Quit()
}
