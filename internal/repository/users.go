package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const createUser = `
INSERT INTO users (email, password_hash, name)
VALUES ($1, $2, $3)
RETURNING id, email, password_hash, name, is_subscribed, pro_expires_at, created_at, updated_at
`

// CreateUserParams holds the columns for a new user row.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Email, arg.PasswordHash, arg.Name)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.IsSubscribed, &u.ProExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByID = `
SELECT id, email, password_hash, name, is_subscribed, pro_expires_at, created_at, updated_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.IsSubscribed, &u.ProExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, password_hash, name, is_subscribed, pro_expires_at, created_at, updated_at
FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.IsSubscribed, &u.ProExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const updateUserEntitlement = `
UPDATE users
SET is_subscribed = true,
    pro_expires_at = $2,
    updated_at = now()
WHERE id = $1
`

// UpdateUserEntitlementParams sets the expiry and marks the subscribed flag.
// The flag is informational only; effective PRO status is derived from the
// expiry alone.
type UpdateUserEntitlementParams struct {
	ID           uuid.UUID
	ProExpiresAt time.Time
}

func (q *Queries) UpdateUserEntitlement(ctx context.Context, arg UpdateUserEntitlementParams) error {
	res, err := q.db.ExecContext(ctx, updateUserEntitlement, arg.ID, arg.ProExpiresAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
