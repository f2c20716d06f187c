package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the internal state of an entitlement grant.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// IsTerminal reports whether the status can no longer change. The transition
// out of pending happens at most once; the order id is the idempotency key.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// TransactionSource identifies which path created the grant record.
type TransactionSource string

const (
	TransactionSourceGateway TransactionSource = "gateway"
	TransactionSourceVoucher TransactionSource = "voucher"
	TransactionSourceManual  TransactionSource = "manual"
)

// Transaction is the audit record of an entitlement grant attempt.
//
// Gateway-initiated records are created pending by the charge-initiation step
// and resolved exactly once by the reconciler. Voucher and manual grants are
// created already in the terminal success state.
type Transaction struct {
	ID         uuid.UUID
	OrderID    string // Globally unique external reference; idempotency key
	UserID     uuid.UUID
	AmountIDR  int64 // Rupiah, whole units
	Plan       Plan
	Status     TransactionStatus
	Source     TransactionSource
	RawPayload json.RawMessage // Last gateway notification body, if any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
