package email

import (
	"context"
	"fmt"

	"github.com/simplemailer/simplemailer/internal/config"
)

// NewFactory returns a Factory building the transport selected by
// email.provider. ctx scopes the OAuth2 token source of the Gmail transport.
func NewFactory(ctx context.Context, cfg *config.Config) Factory {
	return func() (Transport, error) {
		switch cfg.Email.Provider {
		case "smtp", "":
			return NewSMTPTransport(SMTPConfigFrom(cfg.SMTP))
		case "gmail":
			g := cfg.Email.Gmail
			sender := g.SenderAddress
			if sender == "" {
				sender = cfg.SMTP.FromAddress()
			}
			return NewGmailTransport(ctx, GmailConfig{
				CredentialsJSON: g.CredentialsJSON,
				ClientID:        g.ClientID,
				ClientSecret:    g.ClientSecret,
				RefreshToken:    g.RefreshToken,
				SenderAddress:   sender,
			})
		default:
			return nil, fmt.Errorf("unsupported email provider %q", cfg.Email.Provider)
		}
	}
}

// SMTPConfigFrom maps application config onto transport settings
func SMTPConfigFrom(c config.SMTPConfig) SMTPConfig {
	return SMTPConfig{
		Host:               c.Host,
		Port:               c.Port,
		Secure:             c.Secure,
		RequireTLS:         c.RequireTLS,
		InsecureSkipVerify: !c.TLSRejectUnauthorized,
		Username:           c.User,
		Password:           c.Pass,
		LocalName:          c.LocalName,
		Timeout:            c.Timeout,
	}
}
