package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const createTransaction = `
INSERT INTO transactions (order_id, user_id, amount_idr, plan, status, source, raw_payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, user_id, amount_idr, plan, status, source, raw_payload, created_at, updated_at
`

// CreateTransactionParams holds the columns for a new grant audit record.
type CreateTransactionParams struct {
	OrderID    string
	UserID     uuid.UUID
	AmountIdr  int64
	Plan       string
	Status     string
	Source     string
	RawPayload pqtype.NullRawMessage
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.OrderID, arg.UserID, arg.AmountIdr, arg.Plan, arg.Status, arg.Source, arg.RawPayload)
	var t Transaction
	err := row.Scan(&t.ID, &t.OrderID, &t.UserID, &t.AmountIdr, &t.Plan, &t.Status, &t.Source, &t.RawPayload, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const getTransactionByOrderID = `
SELECT id, order_id, user_id, amount_idr, plan, status, source, raw_payload, created_at, updated_at
FROM transactions
WHERE order_id = $1
`

func (q *Queries) GetTransactionByOrderID(ctx context.Context, orderID string) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransactionByOrderID, orderID)
	var t Transaction
	err := row.Scan(&t.ID, &t.OrderID, &t.UserID, &t.AmountIdr, &t.Plan, &t.Status, &t.Source, &t.RawPayload, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const markTransactionStatus = `
UPDATE transactions
SET status = $2, raw_payload = $3, updated_at = now()
WHERE order_id = $1 AND status = 'pending'
`

// MarkTransactionStatusParams moves a pending record to a terminal status.
type MarkTransactionStatusParams struct {
	OrderID    string
	Status     string
	RawPayload pqtype.NullRawMessage
}

// MarkTransactionStatus performs the one-way status transition out of
// pending. It is a compare-and-swap: the WHERE clause only matches pending
// rows, so a duplicate notification for an already-terminal record affects
// zero rows and the caller can skip the entitlement grant.
func (q *Queries) MarkTransactionStatus(ctx context.Context, arg MarkTransactionStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, markTransactionStatus, arg.OrderID, arg.Status, arg.RawPayload)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
