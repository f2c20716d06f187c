package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// GrantOps is the set of queries an entitlement grant runs atomically:
// the user entitlement update and the audit transaction write must commit
// together or not at all. *Queries satisfies it; tests substitute an
// in-memory implementation with failure injection.
type GrantOps interface {
	UpdateUserEntitlement(ctx context.Context, arg UpdateUserEntitlementParams) error
	CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error)
	MarkTransactionStatus(ctx context.Context, arg MarkTransactionStatusParams) (int64, error)
}

// Store combines the query methods with transaction orchestration.
type Store struct {
	*Queries
	db *sql.DB
}

// NewStore creates a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Queries: New(db),
		db:      db,
	}
}

// ExecGrant runs fn inside a database transaction. If fn returns an error
// the transaction rolls back and none of its writes are visible.
func (s *Store) ExecGrant(ctx context.Context, fn func(GrantOps) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(s.Queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
