// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related types for authentication
// and entitlement. These types are separate from the repository models so
// business logic never deals with sql.Null* types directly.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents a registered student account.
//
// Entitlement fields:
//   - IsSubscribed is informational/historical only (e.g. the user bought PRO
//     at some point, possibly cancelled with paid time left). It must never
//     gate access on its own.
//   - ProExpiresAt is the single source of truth for effective PRO status:
//     the account is PRO iff the expiry is set and still in the future.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // Never expose this in API responses
	Name         string
	IsSubscribed bool
	ProExpiresAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsProActiveAt reports whether the user's PRO entitlement is effective at
// the given instant. Only the expiry timestamp is consulted; the subscribed
// flag is deliberately ignored.
func (u *User) IsProActiveAt(now time.Time) bool {
	return u.ProExpiresAt != nil && u.ProExpiresAt.After(now)
}

// IsProActive reports effective PRO status as of now.
func (u *User) IsProActive() bool {
	return u.IsProActiveAt(time.Now())
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored in the database with a hashed token.
// The raw token is only given to the client once (at login).
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, will be hashed by service
	Name     string
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed) - only returned once
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
