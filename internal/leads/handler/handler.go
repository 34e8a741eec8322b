// Package handler exposes the leads bounded context over HTTP.
package handler

import (
	"net/http"

	"realty_leads_backend/internal/leads/assignment"
	"realty_leads_backend/internal/leads/ingestion"
	"realty_leads_backend/internal/leads/management"
	"realty_leads_backend/internal/leads/transport"
	"realty_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for leads.
type Handler struct {
	ingest *ingestion.Service
	assign *assignment.Service
	manage *management.Service
}

// New creates a new leads handler.
func New(ingest *ingestion.Service, assign *assignment.Service, manage *management.Service) *Handler {
	return &Handler{ingest: ingest, assign: assign, manage: manage}
}

// RegisterRoutes mounts lead management routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/assign", h.Assign)
	rg.PATCH("/:id/stage", h.UpdateStage)
}

// RegisterIntakeRoutes mounts the public submission endpoint. It is
// registered separately so the router can attach the intake rate limiter.
func (h *Handler) RegisterIntakeRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Ingest)
}

func (h *Handler) Ingest(c *gin.Context) {
	var req transport.IngestLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, result)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.manage.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.manage.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.assign.Assign(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) UpdateStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.manage.UpdateStage(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
