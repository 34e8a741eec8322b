// Package notification sends emails in response to domain events. The
// module subscribes to the event bus so domain services never talk to the
// mail provider directly. Delivery failures are logged and swallowed: a
// broken mail server must not fail a lead operation.
package notification

import (
	"context"
	"fmt"

	"realty_leads_backend/internal/email"
	"realty_leads_backend/internal/events"
	"realty_leads_backend/platform/config"
	"realty_leads_backend/platform/logger"
)

// Module wires domain events to email delivery.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates the notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, log: log}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(m.onLeadCreated))
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(m.onLeadAssigned))
	bus.Subscribe(events.LeadEscalated{}.EventName(), events.HandlerFunc(m.onLeadEscalated))
}

func (m *Module) onLeadCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(events.LeadCreated)
	if !ok {
		return nil
	}

	inbox := m.cfg.GetOpsInboxAddress()
	if inbox == "" {
		return nil
	}

	err := m.sender.SendLeadReceivedEmail(ctx, inbox, created.BuyerName, created.LeadType, m.leadURL(created.LeadID.String()))
	if err != nil {
		m.log.Error("send lead received email failed", "leadId", created.LeadID, "error", err)
	}
	return nil
}

func (m *Module) onLeadAssigned(ctx context.Context, event events.Event) error {
	assigned, ok := event.(events.LeadAssigned)
	if !ok {
		return nil
	}
	if assigned.AssigneeEmail == "" {
		return nil
	}

	err := m.sender.SendLeadAssignedEmail(ctx, assigned.AssigneeEmail, assigned.AssigneeName, assigned.BuyerName, m.leadURL(assigned.LeadID.String()))
	if err != nil {
		m.log.Error("send lead assigned email failed", "leadId", assigned.LeadID, "error", err)
	}
	return nil
}

func (m *Module) onLeadEscalated(ctx context.Context, event events.Event) error {
	escalated, ok := event.(events.LeadEscalated)
	if !ok {
		return nil
	}

	// The assignee gets the alert when one exists; the ops inbox otherwise.
	recipient := escalated.AssigneeEmail
	if recipient == "" {
		recipient = m.cfg.GetOpsInboxAddress()
	}
	if recipient == "" {
		return nil
	}

	err := m.sender.SendLeadEscalatedEmail(ctx, recipient, escalated.BuyerName, escalated.Stage, escalated.EscalationLevel, m.leadURL(escalated.LeadID.String()))
	if err != nil {
		m.log.Error("send lead escalated email failed", "leadId", escalated.LeadID, "error", err)
	}
	return nil
}

func (m *Module) leadURL(leadID string) string {
	return fmt.Sprintf("%s/leads/%s", m.cfg.GetAppBaseURL(), leadID)
}
