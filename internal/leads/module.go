// Package leads provides the lead lifecycle bounded context: intake,
// duplicate folding, assignment and stage management.
package leads

import (
	"realty_leads_backend/internal/events"
	apphttp "realty_leads_backend/internal/http"
	"realty_leads_backend/internal/leads/assignment"
	"realty_leads_backend/internal/leads/handler"
	"realty_leads_backend/internal/leads/ingestion"
	"realty_leads_backend/internal/leads/management"
	"realty_leads_backend/internal/leads/ports"
	"realty_leads_backend/internal/leads/repository"
	"realty_leads_backend/platform/logger"
	"realty_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	ingestion  *ingestion.Service
	assignment *assignment.Service
	management *management.Service
	repo       *repository.Repository
}

// NewModule creates and initializes the leads module.
func NewModule(pool *pgxpool.Pool, candidates ports.CandidateProvider, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	ingestSvc := ingestion.New(repo, val, bus, log)
	assignSvc := assignment.New(repo, candidates, bus, log)
	manageSvc := management.New(repo, val, bus, log)

	return &Module{
		handler:    handler.New(ingestSvc, assignSvc, manageSvc),
		ingestion:  ingestSvc,
		assignment: assignSvc,
		management: manageSvc,
		repo:       repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts the lead routes. The public intake endpoint gets
// the stricter per-IP rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/leads")
	m.handler.RegisterRoutes(group)

	intake := ctx.V1.Group("/leads")
	intake.Use(ctx.IntakeRateLimiter.RateLimit())
	m.handler.RegisterIntakeRoutes(intake)
}

// Repository returns the repository for use by the scheduler binary.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// AssignmentService returns the assignment engine for external callers.
func (m *Module) AssignmentService() *assignment.Service {
	return m.assignment
}
