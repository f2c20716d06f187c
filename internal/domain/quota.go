// Package domain contains core business types and interfaces.
//
// This file defines quota types for the daily generation limit enforced by
// the quota gate.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Daily generation limits. PRO status is derived from the entitlement expiry,
// never from the subscribed flag.
const (
	FreeDailyLimit = 3
	ProDailyLimit  = 50
)

// DailyLimitFor returns the effective daily limit: a caller-supplied override
// wins, otherwise the PRO or free default applies.
func DailyLimitFor(proActive bool, override *int) int {
	if override != nil {
		return *override
	}
	if proActive {
		return ProDailyLimit
	}
	return FreeDailyLimit
}

// UsageDay truncates an instant to its UTC calendar day. All usage ledger
// rows are keyed on this bucket so the day boundary is identical across
// regions and server timezones.
func UsageDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// QuotaCheck is the result of consulting the quota gate. The check itself has
// no side effects; incrementing the ledger is a separate explicit step taken
// only after the gated operation succeeds.
type QuotaCheck struct {
	Allowed   bool
	Used      int
	Limit     int
	ProActive bool
	UserID    uuid.UUID
}

// Remaining returns how many generations are left today.
func (c QuotaCheck) Remaining() int {
	if c.Used >= c.Limit {
		return 0
	}
	return c.Limit - c.Used
}

// QuotaUsage is the client-facing view of today's usage. It is computed with
// the exact same formula as QuotaCheck so the display can never diverge from
// what the gate enforces.
type QuotaUsage struct {
	Used        int  `json:"used"`
	Remaining   int  `json:"remaining"`
	MaxDaily    int  `json:"maxDaily"`
	CanGenerate bool `json:"canGenerate"`
}
