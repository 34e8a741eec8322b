// Package email delivers notification emails over SMTP.
package email

import (
	"context"

	"realty_leads_backend/platform/config"
)

// Sender delivers the notification emails the leads flow produces.
type Sender interface {
	SendLeadReceivedEmail(ctx context.Context, toEmail, buyerName, leadType, leadURL string) error
	SendLeadAssignedEmail(ctx context.Context, toEmail, assigneeName, buyerName, leadURL string) error
	SendLeadEscalatedEmail(ctx context.Context, toEmail, buyerName, stage string, escalationLevel int, leadURL string) error
}

// NoopSender satisfies Sender without delivering anything. Used when SMTP
// is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadReceivedEmail(ctx context.Context, toEmail, buyerName, leadType, leadURL string) error {
	return nil
}

func (NoopSender) SendLeadAssignedEmail(ctx context.Context, toEmail, assigneeName, buyerName, leadURL string) error {
	return nil
}

func (NoopSender) SendLeadEscalatedEmail(ctx context.Context, toEmail, buyerName, stage string, escalationLevel int, leadURL string) error {
	return nil
}

// NewSender returns an SMTP-backed sender when email is configured and a
// noop sender otherwise.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
