// Package domain contains core business types and interfaces.
//
// This file defines the PRO plans and the entitlement-extension rule shared
// by the payment reconciler, voucher redemption, and manual activation.
package domain

import (
	"strings"
	"time"
)

// Plan identifies a PRO subscription plan.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// YearlyOrderMarker is the substring embedded in order identifiers for
// yearly-plan charges. The reconciler derives the plan kind from it because
// the gateway notification itself carries no plan information.
const YearlyOrderMarker = "YEARLY"

// Valid reports whether the plan is a known plan kind.
func (p Plan) Valid() bool {
	switch p {
	case PlanMonthly, PlanYearly:
		return true
	default:
		return false
	}
}

// ExpiryFrom computes the entitlement expiry this plan grants, counted from
// the given instant. Extensions are deliberately non-stacking: the new expiry
// is always computed from "now", discarding any unexpired remainder.
func (p Plan) ExpiryFrom(now time.Time) time.Time {
	switch p {
	case PlanYearly:
		return now.AddDate(1, 0, 0)
	default:
		return now.AddDate(0, 0, 30)
	}
}

// PlanFromOrderID derives the plan kind from an order identifier by looking
// for the yearly marker substring. Anything else is a monthly charge.
func PlanFromOrderID(orderID string) Plan {
	if strings.Contains(strings.ToUpper(orderID), YearlyOrderMarker) {
		return PlanYearly
	}
	return PlanMonthly
}
