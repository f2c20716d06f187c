package repository

import (
	"context"

	"github.com/google/uuid"
)

const createAIUsage = `
INSERT INTO ai_usage (user_id, report_id, model, input_tokens, output_tokens, cost_cents)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, report_id, model, input_tokens, output_tokens, cost_cents, created_at
`

// CreateAIUsageParams holds the columns for a new usage row.
type CreateAIUsageParams struct {
	UserID       uuid.UUID
	ReportID     uuid.NullUUID
	Model        string
	InputTokens  int32
	OutputTokens int32
	CostCents    int32
}

func (q *Queries) CreateAIUsage(ctx context.Context, arg CreateAIUsageParams) (AiUsage, error) {
	row := q.db.QueryRowContext(ctx, createAIUsage,
		arg.UserID, arg.ReportID, arg.Model, arg.InputTokens, arg.OutputTokens, arg.CostCents)
	var u AiUsage
	err := row.Scan(&u.ID, &u.UserID, &u.ReportID, &u.Model, &u.InputTokens, &u.OutputTokens, &u.CostCents, &u.CreatedAt)
	return u, err
}
