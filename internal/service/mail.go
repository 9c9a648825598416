package service

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"tourbook/internal/model"
)

// Mailer delivers transactional messages. Implementations must report
// delivery failure so callers can roll back dependent state (the pending
// password-reset token).
type Mailer interface {
	SendWelcome(ctx context.Context, user *model.User, loginURL string) error
	SendPasswordReset(ctx context.Context, user *model.User, resetURL string) error
}

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer creates a Mailer delivering over SMTP.
func NewSMTPMailer(cfg SMTPConfig) (Mailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &smtpMailer{client: client, from: cfg.From}, nil
}

func (m *smtpMailer) SendWelcome(ctx context.Context, user *model.User, loginURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Tourbook! We're glad to have you.\nLog in any time at %s\n",
		user.Name, loginURL,
	)
	return m.send(ctx, user.Email, "Welcome to Tourbook!", body)
}

func (m *smtpMailer) SendPasswordReset(ctx context.Context, user *model.User, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Submit a PATCH request with your new password to:\n%s\n\nThis link is valid for 10 minutes. If you didn't request a reset, ignore this email.\n",
		user.Name, resetURL,
	)
	return m.send(ctx, user.Email, "Your password reset token (valid for 10 minutes)", body)
}

func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
