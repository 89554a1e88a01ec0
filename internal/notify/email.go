package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"clinic-app-server/internal/config"
)

// EmailSender sends one email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // Plain text body
	HTML    string // Optional HTML body
}

// NewSender picks the sender configured by cfg.Provider. Unknown or
// unconfigured providers fall back to the stub.
func NewSender(cfg config.MailerConfig, logger zerolog.Logger) EmailSender {
	switch cfg.Provider {
	case "sendgrid":
		if s := NewSendGridSender(cfg, logger); s != nil {
			return s
		}
		logger.Warn().Msg("SENDGRID_API_KEY not set, emails will only be logged")
	case "smtp":
		if cfg.SMTPHost != "" {
			return NewSMTPSender(cfg, logger)
		}
		logger.Warn().Msg("SMTP_HOST not set, emails will only be logged")
	}
	return NewStubEmailSender(logger)
}

// SendGridSender sends emails via SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    zerolog.Logger
}

func NewSendGridSender(cfg config.MailerConfig, logger zerolog.Logger) *SendGridSender {
	if cfg.SendGridAPIKey == "" {
		return nil
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromEmail: cfg.DefaultFrom,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error().Int("status", response.StatusCode).Str("body", response.Body).Str("to", msg.To).Msg("sendgrid returned error status")
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent via sendgrid")
	return nil
}

// Dialer is the part of gomail.Dialer SMTPSender uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends emails through an SMTP relay.
type SMTPSender struct {
	dialer   Dialer
	from     string
	fromName string
	logger   zerolog.Logger
}

func NewSMTPSender(cfg config.MailerConfig, logger zerolog.Logger) *SMTPSender {
	from := cfg.DefaultFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:     from,
		fromName: cfg.FromName,
		logger:   logger,
	}
}

func (s *SMTPSender) Send(_ context.Context, msg EmailMessage) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent via smtp")
	return nil
}

// StubEmailSender logs emails instead of sending them.
type StubEmailSender struct {
	logger zerolog.Logger
}

func NewStubEmailSender(logger zerolog.Logger) *StubEmailSender {
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("stub email sender: would send email")
	return nil
}
