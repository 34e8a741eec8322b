// Package ingestion accepts raw lead submissions from any intake channel,
// folds them into an existing open duplicate when one exists, and otherwise
// creates a fresh lead in the new stage.
package ingestion

import (
	"context"
	"strings"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/internal/leads/transport"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/logger"
	"realty_leads_backend/platform/phone"
	"realty_leads_backend/platform/sanitize"
	"realty_leads_backend/platform/validator"
)

// Store is the slice of the repository ingestion needs.
type Store interface {
	repository.DuplicateFinder
	repository.LeadWriter
}

type Service struct {
	store    Store
	validate *validator.Validator
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(store Store, validate *validator.Validator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		validate: validate,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Ingest runs the merge-or-create pipeline for one submission.
//
// The duplicate check is two-tier: the store prefilters by the coarse legacy
// status (unassigned, assigned, contacted), then the current stage decides.
// The prefilter alone cannot tell qualified or negotiating leads apart from
// stale entries because both project to the contacted status, so the
// stage-level terminal check is the authoritative filter.
func (s *Service) Ingest(ctx context.Context, req transport.IngestLeadRequest) (transport.IngestLeadResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.IngestLeadResponse{}, apperr.Validation("invalid lead submission").WithOp("ingestion.Ingest").WithDetails(err.Error())
	}

	email := sanitize.Email(req.BuyerEmail)
	phoneDigits := phone.Digits(req.BuyerPhone)

	openCandidatesByStatus, err := s.store.FindOpenByEmailOrPhone(ctx, email, phoneDigits, domain.OpenLegacyStatuses())
	if err != nil {
		return transport.IngestLeadResponse{}, apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err).WithOp("ingestion.Ingest")
	}

	nonTerminalCandidates := make([]repository.Lead, 0, len(openCandidatesByStatus))
	for _, candidate := range openCandidatesByStatus {
		stage := domain.NormalizeStage(string(candidate.Stage), candidate.Status)
		if domain.IsTerminal(stage) {
			continue
		}
		nonTerminalCandidates = append(nonTerminalCandidates, candidate)
	}

	if len(nonTerminalCandidates) > 0 {
		// Candidates arrive most recently touched first; the head is the
		// merge target.
		return s.merge(ctx, nonTerminalCandidates[0])
	}

	return s.create(ctx, req, email, phoneDigits)
}

func (s *Service) merge(ctx context.Context, target repository.Lead) (transport.IngestLeadResponse, error) {
	merged, err := s.store.MergeDuplicate(ctx, target.ID, s.now().UTC())
	if err != nil {
		return transport.IngestLeadResponse{}, apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err).WithOp("ingestion.merge")
	}

	s.log.LeadEvent("lead_duplicate_merged", merged.ID.String())
	s.bus.Publish(ctx, events.LeadDuplicateMerged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         merged.ID,
		DuplicateCount: merged.DuplicateCount,
		BuyerEmail:     merged.BuyerEmail,
	})

	mergedID := merged.ID
	return transport.IngestLeadResponse{
		ID:               merged.ID,
		Duplicate:        true,
		MergedIntoLeadID: &mergedID,
	}, nil
}

func (s *Service) create(ctx context.Context, req transport.IngestLeadRequest, email, phoneDigits string) (transport.IngestLeadResponse, error) {
	now := s.now().UTC()

	params := repository.CreateLeadParams{
		Type:              string(req.Type),
		Source:            string(req.Source),
		BuyerName:         strings.TrimSpace(req.BuyerName),
		BuyerEmail:        email,
		Stage:             domain.StageNew,
		StageChangeReason: "lead_created",
		StageSLADueAt:     domain.SLADueAt(domain.StageNew, now),
	}

	if req.SourceID != "" {
		sourceID := req.SourceID
		params.SourceID = &sourceID
	}
	if req.BuyerPhone != "" {
		rawPhone := strings.TrimSpace(req.BuyerPhone)
		params.BuyerPhone = &rawPhone
		if phoneDigits != "" {
			params.BuyerPhoneNormalized = &phoneDigits
		}
	}
	if req.Message != "" {
		message := sanitize.Text(req.Message)
		params.Message = &message
	}
	// An empty payload object contributes nothing.
	if len(req.Payload) > 0 {
		payload := make(map[string]interface{}, len(req.Payload))
		for key, value := range req.Payload {
			payload[key] = value
		}
		params.Payload = payload
	}

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		return transport.IngestLeadResponse{}, apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err).WithOp("ingestion.create")
	}

	s.log.LeadEvent("lead_created", lead.ID.String())
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		LeadType:   lead.Type,
		Source:     lead.Source,
		BuyerName:  lead.BuyerName,
		BuyerEmail: lead.BuyerEmail,
	})

	resp := transport.ToLeadResponse(lead)
	return transport.IngestLeadResponse{
		ID:   lead.ID,
		Lead: &resp,
	}, nil
}
