// Package management serves lead reads and operator-driven stage
// transitions.
package management

import (
	"context"
	"errors"
	"time"

	"realty_leads_backend/internal/events"
	"realty_leads_backend/internal/leads/domain"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/internal/leads/transport"
	"realty_leads_backend/platform/apperr"
	"realty_leads_backend/platform/logger"
	"realty_leads_backend/platform/validator"

	"github.com/google/uuid"
)

const defaultPageSize = 25

// Store is the slice of the repository management needs.
type Store interface {
	repository.LeadReader
	SetStage(ctx context.Context, id uuid.UUID, params repository.SetStageParams) (repository.Lead, error)
	repository.ActivityLogger
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

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found").WithOp("management.GetByID")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "load lead", err).WithOp("management.GetByID")
	}
	return transport.ToLeadResponse(lead), nil
}

func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.LeadListResponse{}, apperr.Validation("invalid list query").WithOp("management.List").WithDetails(err.Error())
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	leads, total, err := s.store.List(ctx, repository.ListParams{
		Stage:     req.Stage,
		Status:    req.Status,
		Search:    req.Search,
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return transport.LeadListResponse{}, apperr.Wrap(apperr.KindInternal, "list leads", err).WithOp("management.List")
	}

	return transport.ToLeadListResponse(leads, total, page, pageSize), nil
}

// UpdateStage validates and applies a stage transition. The legacy status
// and the SLA deadline are recomputed from the target stage, and any
// escalation state is cleared because the SLA clock restarts.
func (s *Service) UpdateStage(ctx context.Context, id uuid.UUID, req transport.UpdateStageRequest) (transport.LeadResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.LeadResponse{}, apperr.Validation("invalid stage request").WithOp("management.UpdateStage").WithDetails(err.Error())
	}

	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found").WithOp("management.UpdateStage")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "load lead", err).WithOp("management.UpdateStage")
	}

	current := domain.NormalizeStage(string(lead.Stage), lead.Status)
	next := domain.Stage(req.Stage)
	if err := domain.ValidateTransition(current, next); err != nil {
		return transport.LeadResponse{}, err
	}

	now := s.now().UTC()
	reason := req.Reason
	if reason == "" {
		reason = "stage_updated"
	}

	updated, err := s.store.SetStage(ctx, id, repository.SetStageParams{
		Stage:     next,
		Reason:    reason,
		SLADueAt:  domain.SLADueAt(next, now),
		ChangedAt: now,
	})
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "persist stage", err).WithOp("management.UpdateStage")
	}

	if err := s.store.AddActivity(ctx, id, "stage", "stage_changed", map[string]interface{}{
		"fromStage": string(current),
		"toStage":   string(next),
		"reason":    reason,
	}); err != nil {
		s.log.DatabaseError("record stage activity", err)
	}

	s.log.LeadEvent("lead_stage_changed", id.String())
	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		FromStage: string(current),
		ToStage:   string(next),
		Reason:    reason,
		SLADueAt:  updated.StageSLADueAt,
	})

	return transport.ToLeadResponse(updated), nil
}
