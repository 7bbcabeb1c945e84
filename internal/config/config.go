package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Email    EmailConfig    `mapstructure:"email"`
	Mailing  MailingConfig  `mapstructure:"mailing"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects it
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// RunTTL is how long dispatch run summaries are kept
	RunTTL time.Duration `mapstructure:"run_ttl"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the recipient store backend
type StoreConfig struct {
	// Driver is "postgres" or "memory"
	Driver       string        `mapstructure:"driver"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// SMTPConfig holds the SMTP transport settings
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Secure opens the connection with implicit TLS (port 465 style)
	Secure bool `mapstructure:"secure"`
	// RequireTLS fails the session when STARTTLS is unavailable
	RequireTLS            bool          `mapstructure:"require_tls"`
	TLSRejectUnauthorized bool          `mapstructure:"tls_reject_unauthorized"`
	User                  string        `mapstructure:"user"`
	Pass                  string        `mapstructure:"pass"`
	From                  string        `mapstructure:"from"`
	LocalName             string        `mapstructure:"local_name"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

// Addr returns the SMTP server address
func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FromAddress returns the configured from-address, falling back to the login user
func (c SMTPConfig) FromAddress() string {
	if c.From != "" {
		return c.From
	}
	return c.User
}

// EmailConfig holds email sending configuration
type EmailConfig struct {
	// Provider is the transport to use: "smtp" or "gmail"
	Provider string           `mapstructure:"provider"`
	Gmail    GmailEmailConfig `mapstructure:"gmail"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID for OAuth2 token-based auth (alternative to service account)
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	// SenderAddress is the mailbox the service account impersonates
	SenderAddress string `mapstructure:"sender_address"`
}

// MailingConfig holds settings for bulk mail to the list
type MailingConfig struct {
	// BaseURL is the public origin used to build unsubscribe links
	BaseURL        string `mapstructure:"base_url"`
	ListID         string `mapstructure:"list_id"`
	DefaultSubject string `mapstructure:"default_subject"`
}

// UnsubscribeURL builds the public unsubscribe link for a recipient token
func (c MailingConfig) UnsubscribeURL(token string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/unsubscribe?uuid=" + token
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	// APIKey guards the management endpoints. Empty disables the check.
	APIKey string `mapstructure:"api_key"`
}

// legacyEnv maps config keys to the bare variable names older deployments use
var legacyEnv = map[string][]string{
	"smtp.host":                    {"SMTP_HOST"},
	"smtp.port":                    {"SMTP_PORT"},
	"smtp.secure":                  {"SMTP_SECURE"},
	"smtp.require_tls":             {"SMTP_REQUIRE_TLS"},
	"smtp.tls_reject_unauthorized": {"SMTP_TLS_REJECT_UNAUTHORIZED"},
	"smtp.user":                    {"SMTP_USER", "GMAIL_USER"},
	"smtp.pass":                    {"SMTP_PASS", "GMAIL_PASS"},
	"smtp.from":                    {"MAIL_FROM"},
	"mailing.base_url":             {"BASE_URL"},
	"mailing.list_id":              {"MAIL_LIST_ID"},
	"security.api_key":             {"API_KEY"},
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/simplemailer")

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("MAILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings replace the prefixed name, so both are listed.
	for key, names := range legacyEnv {
		prefixed := "MAILER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid store.driver %q: must be postgres or memory", c.Store.Driver)
	}
	switch c.Email.Provider {
	case "smtp", "gmail":
	default:
		return fmt.Errorf("invalid email.provider %q: must be smtp or gmail", c.Email.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "simplemailer")
	v.SetDefault("database.user", "simplemailer")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.run_ttl", "24h")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Store defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.query_timeout", "5s")

	// SMTP defaults
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.secure", false)
	v.SetDefault("smtp.require_tls", true)
	v.SetDefault("smtp.tls_reject_unauthorized", true)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.local_name", "localhost")
	v.SetDefault("smtp.timeout", "30s")

	// Email defaults
	v.SetDefault("email.provider", "smtp")
	v.SetDefault("email.gmail.credentials_json", "")
	v.SetDefault("email.gmail.client_id", "")
	v.SetDefault("email.gmail.client_secret", "")
	v.SetDefault("email.gmail.refresh_token", "")
	v.SetDefault("email.gmail.sender_address", "")

	// Mailing defaults
	v.SetDefault("mailing.base_url", "http://localhost:8080")
	v.SetDefault("mailing.list_id", "simple-mailer")
	v.SetDefault("mailing.default_subject", "Notification from Simple Mailer")

	v.SetDefault("security.api_key", "")
}
