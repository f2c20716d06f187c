package repository

import (
	"context"

	"github.com/google/uuid"
)

const createReport = `
INSERT INTO reports (id, user_id, title, course, summary, storage_key, model)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, title, course, summary, storage_key, model, created_at
`

// CreateReportParams holds the columns for a new report row. The id is
// chosen by the caller because the storage key embeds it before the row
// exists.
type CreateReportParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Title      string
	Course     string
	Summary    string
	StorageKey string
	Model      string
}

func (q *Queries) CreateReport(ctx context.Context, arg CreateReportParams) (Report, error) {
	row := q.db.QueryRowContext(ctx, createReport,
		arg.ID, arg.UserID, arg.Title, arg.Course, arg.Summary, arg.StorageKey, arg.Model)
	var r Report
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Course, &r.Summary, &r.StorageKey, &r.Model, &r.CreatedAt)
	return r, err
}

const getReportByID = `
SELECT id, user_id, title, course, summary, storage_key, model, created_at
FROM reports
WHERE id = $1
`

func (q *Queries) GetReportByID(ctx context.Context, id uuid.UUID) (Report, error) {
	row := q.db.QueryRowContext(ctx, getReportByID, id)
	var r Report
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Course, &r.Summary, &r.StorageKey, &r.Model, &r.CreatedAt)
	return r, err
}

const listReportsByUser = `
SELECT id, user_id, title, course, summary, storage_key, model, created_at
FROM reports
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`

type ListReportsByUserParams struct {
	UserID uuid.UUID
	Limit  int32
}

func (q *Queries) ListReportsByUser(ctx context.Context, arg ListReportsByUserParams) ([]Report, error) {
	rows, err := q.db.QueryContext(ctx, listReportsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.Course, &r.Summary, &r.StorageKey, &r.Model, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
