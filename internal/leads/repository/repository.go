package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"realty_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, type, source, source_id, buyer_name, buyer_email, buyer_phone, buyer_phone_normalized,
	message, lead_stage, status, stage_changed_at, stage_change_reason, stage_sla_due_at,
	assigned_to_uid, assigned_to_name, assigned_to_role, assigned_to_email, assigned_at,
	escalated, escalation_level, duplicate_count, last_duplicate_at, payload, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var (
		lead          Lead
		stage         string
		assigneeUID   *uuid.UUID
		assigneeName  *string
		assigneeRole  *string
		assigneeEmail *string
		payloadJSON   []byte
	)

	err := row.Scan(
		&lead.ID, &lead.Type, &lead.Source, &lead.SourceID, &lead.BuyerName, &lead.BuyerEmail,
		&lead.BuyerPhone, &lead.BuyerPhoneNormalized, &lead.Message, &stage, &lead.Status,
		&lead.StageChangedAt, &lead.StageChangeReason, &lead.StageSLADueAt,
		&assigneeUID, &assigneeName, &assigneeRole, &assigneeEmail, &lead.AssignedAt,
		&lead.Escalated, &lead.EscalationLevel, &lead.DuplicateCount, &lead.LastDuplicateAt,
		&payloadJSON, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}

	lead.Stage = domain.Stage(stage)
	if assigneeUID != nil {
		lead.AssignedTo = &Assignee{
			UID:   *assigneeUID,
			Name:  derefString(assigneeName),
			Role:  derefString(assigneeRole),
			Email: derefString(assigneeEmail),
		}
	}
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &lead.Payload); err != nil {
			return Lead{}, fmt.Errorf("decode lead payload: %w", err)
		}
	}

	return lead, nil
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1`, leadColumns), id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// FindOpenByEmailOrPhone returns leads whose normalized email or phone digits
// match and whose legacy status is in statusIn, most recently touched first.
// This is the coarse prefilter of the dedup pipeline; the caller applies the
// stage-level terminal check.
func (r *Repository) FindOpenByEmailOrPhone(ctx context.Context, email, phoneDigits string, statusIn []string) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE status = ANY($3)
		  AND (($1 <> '' AND buyer_email = $1) OR ($2 <> '' AND buyer_phone_normalized = $2))
		ORDER BY COALESCE(updated_at, created_at) DESC
	`, leadColumns), email, phoneDigits, statusIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var payloadJSON []byte
	if len(params.Payload) > 0 {
		encoded, err := json.Marshal(params.Payload)
		if err != nil {
			return Lead{}, err
		}
		payloadJSON = encoded
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO leads (
			type, source, source_id, buyer_name, buyer_email, buyer_phone, buyer_phone_normalized,
			message, lead_stage, status, stage_changed_at, stage_change_reason, stage_sla_due_at, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), $11, $12, $13)
		RETURNING %s
	`, leadColumns),
		params.Type, params.Source, params.SourceID, params.BuyerName, params.BuyerEmail,
		params.BuyerPhone, params.BuyerPhoneNormalized, params.Message,
		string(params.Stage), domain.LegacyStatus(params.Stage),
		params.StageChangeReason, params.StageSLADueAt, payloadJSON,
	)

	return scanLead(row)
}

// MergeDuplicate folds a colliding submission into an existing open lead:
// duplicate_count increments by one and the touch timestamps move to at.
func (r *Repository) MergeDuplicate(ctx context.Context, id uuid.UUID, at time.Time) (Lead, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE leads
		SET duplicate_count = duplicate_count + 1, last_duplicate_at = $2, updated_at = $2
		WHERE id = $1
		RETURNING %s
	`, leadColumns), id, at)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// SetAssignment records the assignee and moves the lead to the assigned
// stage, deriving the legacy status and the stage SLA in the same write.
func (r *Repository) SetAssignment(ctx context.Context, id uuid.UUID, assignee Assignee, at time.Time) (Lead, error) {
	stage := domain.StageAssigned
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE leads
		SET lead_stage = $2, status = $3,
			assigned_to_uid = $4, assigned_to_name = $5, assigned_to_role = $6, assigned_to_email = $7,
			assigned_at = $8, stage_changed_at = $8, stage_change_reason = 'lead_assigned',
			stage_sla_due_at = $9, updated_at = $8
		WHERE id = $1
		RETURNING %s
	`, leadColumns),
		id, string(stage), domain.LegacyStatus(stage),
		assignee.UID, assignee.Name, assignee.Role, assignee.Email,
		at, domain.SLADueAt(stage, at),
	)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// SetStage writes a stage transition. The legacy status column is always
// derived from the new stage here, never passed in, so the two cannot drift.
// Escalation flags reset because the SLA clock restarts with the new stage.
func (r *Repository) SetStage(ctx context.Context, id uuid.UUID, params SetStageParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE leads
		SET lead_stage = $2, status = $3, stage_changed_at = $4, stage_change_reason = $5,
			stage_sla_due_at = $6, escalated = false, escalation_level = 0, updated_at = $4
		WHERE id = $1
		RETURNING %s
	`, leadColumns),
		id, string(params.Stage), domain.LegacyStatus(params.Stage),
		params.ChangedAt, params.Reason, params.SLADueAt,
	)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// ListOverdue returns non-escalatable-exhausted leads whose SLA deadline has
// passed, oldest deadline first.
func (r *Repository) ListOverdue(ctx context.Context, before time.Time, maxLevel int, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE stage_sla_due_at IS NOT NULL AND stage_sla_due_at < $1 AND escalation_level < $2
		ORDER BY stage_sla_due_at ASC
		LIMIT $3
	`, leadColumns), before, maxLevel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

func (r *Repository) SetEscalation(ctx context.Context, id uuid.UUID, level int, at time.Time) (Lead, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE leads
		SET escalated = true, escalation_level = $2, updated_at = $3
		WHERE id = $1
		RETURNING %s
	`, leadColumns), id, level, at)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn := mapLeadSortColumn(params.SortBy)
	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	whereClauses := []string{"true"}
	args := []interface{}{}
	argIdx := 1

	if params.Stage != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("lead_stage = $%d", argIdx))
		args = append(args, params.Stage)
		argIdx++
	}
	if params.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}
	if params.Search != "" {
		searchPattern := "%" + params.Search + "%"
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(buyer_name ILIKE $%d OR buyer_email ILIKE $%d OR buyer_phone ILIKE $%d)",
			argIdx, argIdx, argIdx,
		))
		args = append(args, searchPattern)
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "updatedAt":
		return "updated_at"
	case "stageChangedAt":
		return "stage_changed_at"
	case "buyerName":
		return "buyer_name"
	default:
		return "created_at"
	}
}

// GetAssignmentCounter reads the round-robin cursor. Returns nil before the
// first assignment.
func (r *Repository) GetAssignmentCounter(ctx context.Context) (*uuid.UUID, error) {
	var lastAssigned *uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT last_assigned_uid FROM assignment_counter WHERE id = 1`).Scan(&lastAssigned)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lastAssigned, nil
}

// SetAssignmentCounter advances the round-robin cursor. Last writer wins;
// fairness drift under concurrent assignment is accepted.
func (r *Repository) SetAssignmentCounter(ctx context.Context, lastAssignedUID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assignment_counter (id, last_assigned_uid, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET last_assigned_uid = EXCLUDED.last_assigned_uid, updated_at = now()
	`, lastAssignedUID)
	return err
}

func (r *Repository) AddActivity(ctx context.Context, leadID uuid.UUID, activityType, action string, meta map[string]interface{}) error {
	var metaJSON []byte
	if meta != nil {
		encoded, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		metaJSON = encoded
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_activity (lead_id, type, action, meta)
		VALUES ($1, $2, $3, $4)
	`, leadID, activityType, action, metaJSON)
	return err
}
