// Package mail sends transactional email. Delivery goes through SendGrid;
// without an API key messages are logged instead so local development and
// tests never need network access.
package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"ripple/internal/middleware"
)

// Mailer delivers a single message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, plainText, htmlContent string) error
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	client   *sendgrid.Client
	fromAddr string
	fromName string
}

// NewSendGridMailer returns a SendGrid-backed Mailer.
func NewSendGridMailer(apiKey, fromAddr, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, to, subject, plainText, htmlContent string) error {
	from := sgmail.NewEmail(m.fromName, m.fromAddr)
	recipient := sgmail.NewEmail("", to)
	message := sgmail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to send email", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		middleware.Logger.ErrorContext(ctx, "SendGrid rejected email", "to", to, "status_code", response.StatusCode)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	middleware.Logger.InfoContext(ctx, "Email sent", "to", to, "subject", subject, "status_code", response.StatusCode)
	return nil
}

// LogMailer writes messages to the application log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, plainText, _ string) error {
	middleware.Logger.InfoContext(ctx, "Email (log only)", "to", to, "subject", subject, "body", plainText)
	return nil
}

// New returns a SendGrid mailer when an API key is configured, otherwise a
// log-only mailer.
func New(apiKey, fromAddr, fromName string) Mailer {
	if apiKey == "" {
		return LogMailer{}
	}
	return NewSendGridMailer(apiKey, fromAddr, fromName)
}
