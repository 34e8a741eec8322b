package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendLeadReceivedEmail(ctx context.Context, toEmail, buyerName, leadType, leadURL string) error {
	content, err := renderEmailTemplate("lead_received.html", leadReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Nuevo lead recibido",
			Heading:  "Nuevo lead recibido",
			CTALabel: "Ver lead",
			CTAURL:   leadURL,
		},
		BuyerName: buyerName,
		LeadType:  leadType,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadReceived, content)
}

func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail, assigneeName, buyerName, leadURL string) error {
	content, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Lead asignado",
			Heading:  "Se le ha asignado un lead",
			CTALabel: "Ver lead",
			CTAURL:   leadURL,
		},
		AssigneeName: assigneeName,
		BuyerName:    buyerName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectLeadAssigned, content)
}

func (s *SMTPSender) SendLeadEscalatedEmail(ctx context.Context, toEmail, buyerName, stage string, escalationLevel int, leadURL string) error {
	subject := fmt.Sprintf(subjectLeadEscalatedFmt, escalationLevel)
	content, err := renderEmailTemplate("lead_escalated.html", leadEscalatedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Lead fuera de SLA",
			Heading:  "Un lead supera su SLA",
			CTALabel: "Ver lead",
			CTAURL:   leadURL,
		},
		BuyerName:       buyerName,
		Stage:           stage,
		EscalationLevel: escalationLevel,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
