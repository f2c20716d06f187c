// Package repository contains the database access layer.
//
// Queries are written against database/sql with the pgx stdlib driver and
// follow the query-object convention: one method per statement, parameter
// structs for multi-column writes, and models mirroring the table rows.
package repository

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by Queries. Both *sql.DB and
// *sql.Tx satisfy it, which is how the same query methods run inside and
// outside transactions.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds a database handle and exposes one method per SQL statement.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to an open transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
