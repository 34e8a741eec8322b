package transport

import (
	"realty_leads_backend/internal/leads/repository"
)

// ToLeadResponse maps a persisted lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	resp := LeadResponse{
		ID:                   lead.ID,
		Type:                 LeadType(lead.Type),
		Source:               LeadSource(lead.Source),
		SourceID:             lead.SourceID,
		BuyerName:            lead.BuyerName,
		BuyerEmail:           lead.BuyerEmail,
		BuyerPhone:           lead.BuyerPhone,
		BuyerPhoneNormalized: lead.BuyerPhoneNormalized,
		Message:              lead.Message,
		Stage:                string(lead.Stage),
		Status:               lead.Status,
		StageChangedAt:       lead.StageChangedAt,
		StageChangeReason:    lead.StageChangeReason,
		StageSLADueAt:        lead.StageSLADueAt,
		AssignedAt:           lead.AssignedAt,
		Escalated:            lead.Escalated,
		EscalationLevel:      lead.EscalationLevel,
		DuplicateCount:       lead.DuplicateCount,
		LastDuplicateAt:      lead.LastDuplicateAt,
		Payload:              lead.Payload,
		CreatedAt:            lead.CreatedAt,
		UpdatedAt:            lead.UpdatedAt,
	}

	if lead.AssignedTo != nil {
		resp.AssignedTo = &AssigneeResponse{
			UID:   lead.AssignedTo.UID,
			Name:  lead.AssignedTo.Name,
			Role:  lead.AssignedTo.Role,
			Email: lead.AssignedTo.Email,
		}
	}

	return resp
}

// ToLeadListResponse maps a page of leads plus counts to the list shape.
func ToLeadListResponse(leads []repository.Lead, total, page, pageSize int) LeadListResponse {
	items := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead))
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
