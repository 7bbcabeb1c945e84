package email

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig holds the configuration for the Gmail API transport.
type GmailConfig struct {
	// CredentialsJSON is a service account key with domain-wide delegation.
	CredentialsJSON string
	// ClientID, ClientSecret and RefreshToken authorize a single mailbox
	// when no service account is configured.
	ClientID     string
	ClientSecret string
	RefreshToken string
	// SenderAddress is the mailbox messages are sent as.
	SenderAddress string
}

// GmailTransport implements Transport using the Gmail API.
type GmailTransport struct {
	service     *gmail.Service
	tokenSource oauth2.TokenSource
}

// NewGmailTransport creates a GmailTransport, preferring service account
// credentials over a refresh token.
func NewGmailTransport(ctx context.Context, cfg GmailConfig) (*GmailTransport, error) {
	if cfg.SenderAddress == "" {
		return nil, fmt.Errorf("gmail: sender address is required")
	}

	var ts oauth2.TokenSource
	switch {
	case cfg.CredentialsJSON != "":
		jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("gmail: failed to parse credentials: %w", err)
		}
		// impersonate the sender mailbox
		jwtConfig.Subject = cfg.SenderAddress
		ts = jwtConfig.TokenSource(ctx)
	case cfg.RefreshToken != "":
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		}
		ts = oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	default:
		return nil, fmt.Errorf("gmail: credentials JSON or refresh token is required")
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}
	return newGmailTransport(svc, ts), nil
}

func newGmailTransport(svc *gmail.Service, ts oauth2.TokenSource) *GmailTransport {
	return &GmailTransport{service: svc, tokenSource: ts}
}

// Send submits msg through users.messages.send. Gmail reads recipients,
// Bcc included, from the raw message.
func (g *GmailTransport) Send(ctx context.Context, msg Message) (*SendInfo, error) {
	composed, err := Compose(msg, msg.Headers, ComposeOptions{IncludeBcc: true})
	if err != nil {
		return nil, err
	}

	gmailMsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(composed.Raw),
	}
	sent, err := g.service.Users.Messages.Send("me", gmailMsg).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to send email: %w", err)
	}

	messageID := composed.MessageID
	if sent != nil && sent.Id != "" {
		messageID = sent.Id
	}
	return &SendInfo{
		MessageID: messageID,
		Accepted:  composed.Envelope.To,
		Rejected:  []string{},
		Provider:  "gmail",
	}, nil
}

// Verify obtains an access token, which proves the credentials work.
func (g *GmailTransport) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tok, err := g.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("gmail: failed to obtain token: %w", err)
	}
	if !tok.Valid() {
		return fmt.Errorf("gmail: token is not valid")
	}
	return nil
}
