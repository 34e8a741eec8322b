package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values
type LeadType string

const (
	LeadTypeRequestInfo LeadType = "request-info"
	LeadTypeRequestCall LeadType = "request-call"
	LeadTypeWhatsApp    LeadType = "whatsapp"
	LeadTypeShowing     LeadType = "showing"
)

// LeadSource is the origin category of an intake submission. Property,
// project and agent are the common cases; custom strings are accepted.
type LeadSource string

const (
	LeadSourceProperty LeadSource = "property"
	LeadSourceProject  LeadSource = "project"
	LeadSourceAgent    LeadSource = "agent"
)

// Request DTOs
type IngestLeadRequest struct {
	Type       LeadType               `json:"type" validate:"required,oneof=request-info request-call whatsapp showing"`
	Source     LeadSource             `json:"source" validate:"required,min=1,max=50"`
	SourceID   string                 `json:"sourceId,omitempty" validate:"max=100"`
	BuyerName  string                 `json:"buyerName" validate:"required,min=1,max=200"`
	BuyerEmail string                 `json:"buyerEmail" validate:"required,email"`
	BuyerPhone string                 `json:"buyerPhone,omitempty" validate:"max=30"`
	Message    string                 `json:"message,omitempty" validate:"max=4000"`
	Payload    map[string]interface{} `json:"payload,omitempty" validate:"-"`
}

type UpdateStageRequest struct {
	Stage  string `json:"stage" validate:"required,oneof=new assigned contacted qualified negotiating won lost archived"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type ListLeadsRequest struct {
	Stage     string `form:"stage" validate:"omitempty,oneof=new assigned contacted qualified negotiating won lost archived"`
	Status    string `form:"status" validate:"omitempty,oneof=unassigned assigned contacted won lost"`
	Search    string `form:"search" validate:"max=100"`
	Page      int    `form:"page" validate:"min=0"`
	PageSize  int    `form:"pageSize" validate:"min=0,max=100"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt stageChangedAt buyerName"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// Response DTOs
type AssigneeResponse struct {
	UID   uuid.UUID `json:"uid"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
	Email string    `json:"email"`
}

type LeadResponse struct {
	ID                   uuid.UUID              `json:"id"`
	Type                 LeadType               `json:"type"`
	Source               LeadSource             `json:"source"`
	SourceID             *string                `json:"sourceId,omitempty"`
	BuyerName            string                 `json:"buyerName"`
	BuyerEmail           string                 `json:"buyerEmail"`
	BuyerPhone           *string                `json:"buyerPhone,omitempty"`
	BuyerPhoneNormalized *string                `json:"buyerPhoneNormalized,omitempty"`
	Message              *string                `json:"message,omitempty"`
	Stage                string                 `json:"leadStage"`
	Status               string                 `json:"status"`
	StageChangedAt       time.Time              `json:"stageChangedAt"`
	StageChangeReason    *string                `json:"stageChangeReason,omitempty"`
	StageSLADueAt        *time.Time             `json:"stageSlaDueAt,omitempty"`
	AssignedTo           *AssigneeResponse      `json:"assignedTo,omitempty"`
	AssignedAt           *time.Time             `json:"assignedAt,omitempty"`
	Escalated            bool                   `json:"escalated"`
	EscalationLevel      int                    `json:"escalationLevel"`
	DuplicateCount       int                    `json:"duplicateCount"`
	LastDuplicateAt      *time.Time             `json:"lastDuplicateAt,omitempty"`
	Payload              map[string]interface{} `json:"payload,omitempty"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

type IngestLeadResponse struct {
	ID               uuid.UUID     `json:"id"`
	Duplicate        bool          `json:"duplicate"`
	MergedIntoLeadID *uuid.UUID    `json:"mergedIntoLeadId,omitempty"`
	Lead             *LeadResponse `json:"lead,omitempty"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}
