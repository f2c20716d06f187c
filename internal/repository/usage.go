package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const incrementDailyUsage = `
INSERT INTO usage_records (user_id, usage_date, count)
VALUES ($1, $2, 1)
ON CONFLICT (user_id, usage_date)
DO UPDATE SET count = usage_records.count + 1, updated_at = now()
RETURNING id, user_id, usage_date, count, created_at, updated_at
`

// IncrementDailyUsage atomically creates or increments the usage row for the
// given (user, day) pair. The upsert is a single statement so concurrent
// increments for the same day serialize in the database and never lose
// updates or create a second row.
func (q *Queries) IncrementDailyUsage(ctx context.Context, userID uuid.UUID, day time.Time) (UsageRecord, error) {
	row := q.db.QueryRowContext(ctx, incrementDailyUsage, userID, day)
	var r UsageRecord
	err := row.Scan(&r.ID, &r.UserID, &r.UsageDate, &r.Count, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const getDailyUsage = `
SELECT count FROM usage_records
WHERE user_id = $1 AND usage_date = $2
`

// GetDailyUsage returns the counter for the given (user, day) pair.
// Callers treat sql.ErrNoRows as zero usage.
func (q *Queries) GetDailyUsage(ctx context.Context, userID uuid.UUID, day time.Time) (int32, error) {
	row := q.db.QueryRowContext(ctx, getDailyUsage, userID, day)
	var count int32
	err := row.Scan(&count)
	return count, err
}
