package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Mail transports understood by the server
const (
	TransportSMTP   = "smtp"
	TransportResend = "resend"
	// TransportNone starts the server without mail; the contact endpoint answers 503
	TransportNone = "none"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	GinMode     string `envconfig:"GIN_MODE" default:"debug"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	// Extra origins allowed by CORS on top of FrontendURL
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// Mail transport selection: smtp (default), resend or none
	MailTransport string `envconfig:"MAIL_TRANSPORT" default:"smtp"`

	// SMTP relay
	SMTPHost      string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPSecure    bool   `envconfig:"SMTP_SECURE" default:"false"` // implicit TLS (port 465)
	SMTPUsername  string `envconfig:"SMTP_USERNAME"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	SMTPFromEmail string `envconfig:"SMTP_FROM_EMAIL"` // falls back to SMTPUsername

	// Resend API
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`

	// Site owner
	MailReceiverAddress string `envconfig:"MAIL_RECEIVER_ADDRESS"`
	OwnerName           string `envconfig:"OWNER_NAME" default:"Portfolio"`

	// Memory used by multipart parsing before spilling to temp files
	ContactMaxMemory int64 `envconfig:"CONTACT_MAX_MEMORY" default:"33554432"`
}

func LoadConfig() (*Config, error) {
	// .env is only present locally; production reads the real environment
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	cfg.MailTransport = strings.ToLower(strings.TrimSpace(cfg.MailTransport))
	if cfg.SMTPFromEmail == "" {
		cfg.SMTPFromEmail = cfg.SMTPUsername
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.SMTPPort == 465 && !cfg.SMTPSecure {
		log.Println("WARNING: SMTP_PORT is 465 but SMTP_SECURE is false. The relay probably expects implicit TLS.")
	}

	return &cfg, nil
}

// Validate checks that every parameter the selected transport needs is present
func (c *Config) Validate() error {
	var errs []error

	if c.MailTransport != TransportNone && c.MailReceiverAddress == "" {
		errs = append(errs, errors.New("MAIL_RECEIVER_ADDRESS is required"))
	}

	switch c.MailTransport {
	case TransportNone:
		// nothing to check, mail is disabled
	case TransportSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required"))
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("SMTP_PORT %d is out of range", c.SMTPPort))
		}
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			errs = append(errs, errors.New("SMTP_USERNAME and SMTP_PASSWORD are required"))
		}
	case TransportResend:
		if c.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required"))
		}
		if c.SMTPFromEmail == "" {
			errs = append(errs, errors.New("SMTP_FROM_EMAIL is required for the resend transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_TRANSPORT %q", c.MailTransport))
	}

	if c.ContactMaxMemory <= 0 {
		errs = append(errs, errors.New("CONTACT_MAX_MEMORY must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// AllowedOrigins returns the CORS allow-list: the frontend plus any extras
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.CORSAllowedOrigins)+1)
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	for _, o := range c.CORSAllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsProduction reports whether gin runs in release mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
