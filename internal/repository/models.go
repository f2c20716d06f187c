package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// User mirrors the users table.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	IsSubscribed bool
	ProExpiresAt sql.NullTime
	CreatedAt    sql.NullTime
	UpdatedAt    sql.NullTime
}

// Session mirrors the sessions table.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt sql.NullTime
}

// UsageRecord mirrors the usage_records table. One row per (user, UTC day);
// the pair is unique and the counter only ever moves up.
type UsageRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	UsageDate time.Time
	Count     int32
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
}

// Transaction mirrors the transactions table. The order id is globally
// unique and serves as the idempotency key for gateway notifications.
type Transaction struct {
	ID         uuid.UUID
	OrderID    string
	UserID     uuid.UUID
	AmountIdr  int64
	Plan       string
	Status     string
	Source     string
	RawPayload pqtype.NullRawMessage
	CreatedAt  sql.NullTime
	UpdatedAt  sql.NullTime
}

// Report mirrors the reports table. The document body lives in object
// storage under StorageKey; only metadata is kept here.
type Report struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Title      string
	Course     string
	Summary    string
	StorageKey string
	Model      string
	CreatedAt  sql.NullTime
}

// AiUsage mirrors the ai_usage table.
type AiUsage struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	ReportID     uuid.NullUUID
	Model        string
	InputTokens  int32
	OutputTokens int32
	CostCents    int32
	CreatedAt    sql.NullTime
}
