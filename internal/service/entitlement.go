// Package service contains the business logic layer.
//
// This file implements the entitlement-extension rule shared by the payment
// reconciler, voucher redemption, and administrative manual activation.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/billing"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/repository"
	"github.com/praktika-app/praktika/internal/voucher"
	"github.com/sqlc-dev/pqtype"
)

// EntitlementStore is the persistence surface for entitlement grants.
// *repository.Store satisfies it. ExecGrant must run fn atomically: either
// every write in fn commits, or none do.
type EntitlementStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	ExecGrant(ctx context.Context, fn func(repository.GrantOps) error) error
}

// PlanPricing maps plans to their whole-rupiah prices.
type PlanPricing struct {
	MonthlyIDR int64
	YearlyIDR  int64
}

// AmountFor returns the price for a plan.
func (p PlanPricing) AmountFor(plan domain.Plan) int64 {
	if plan == domain.PlanYearly {
		return p.YearlyIDR
	}
	return p.MonthlyIDR
}

// EntitlementService applies the entitlement-extension rule.
//
// All three grant paths share the same rule: the new expiry is computed from
// "now" per the plan (monthly +30 days, yearly +1 year), never stacked on
// top of unexpired time, and the user update commits in the same database
// transaction as the audit record.
type EntitlementService struct {
	store    EntitlementStore
	vouchers *voucher.Validator
	pricing  PlanPricing
	logger   *slog.Logger
	now      func() time.Time
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(store EntitlementStore, vouchers *voucher.Validator, pricing PlanPricing, logger *slog.Logger) *EntitlementService {
	return &EntitlementService{
		store:    store,
		vouchers: vouchers,
		pricing:  pricing,
		logger:   logger,
		now:      time.Now,
	}
}

// Extend grants or extends PRO for the user, appending a terminal-success
// audit record with the given reference id. Both writes commit atomically.
// Returns the new expiry.
func (s *EntitlementService) Extend(ctx context.Context, userID uuid.UUID, plan domain.Plan, referenceID string, source domain.TransactionSource) (time.Time, error) {
	const op = "entitlement.extend"

	if !plan.Valid() {
		return time.Time{}, domain.Invalid(op, fmt.Sprintf("Unknown plan %q", plan))
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.NotFound(op, "user", userID.String())
		}
		return time.Time{}, domain.Internal(err, op, "Failed to retrieve user")
	}

	expiry := plan.ExpiryFrom(s.now())
	amount := s.pricing.AmountFor(plan)

	err := s.store.ExecGrant(ctx, func(ops repository.GrantOps) error {
		if err := ops.UpdateUserEntitlement(ctx, repository.UpdateUserEntitlementParams{
			ID:           userID,
			ProExpiresAt: expiry,
		}); err != nil {
			return err
		}
		_, err := ops.CreateTransaction(ctx, repository.CreateTransactionParams{
			OrderID:   referenceID,
			UserID:    userID,
			AmountIdr: amount,
			Plan:      string(plan),
			Status:    string(domain.TransactionStatusSuccess),
			Source:    string(source),
		})
		return err
	})
	if err != nil {
		return time.Time{}, domain.Internal(err, op, "Failed to apply entitlement grant")
	}

	s.logger.Info("entitlement extended",
		"user_id", userID,
		"plan", plan,
		"source", source,
		"reference_id", referenceID,
		"amount", billing.FormatAmountIDR(amount),
		"expires_at", expiry,
	)
	return expiry, nil
}

// Redeem grants a monthly extension in exchange for a valid voucher code.
//
// Pre-checks, in order: the code must match a configured secret
// (domain.EINVALID otherwise), and the user's current entitlement must be
// expired (domain.ECONFLICT while still active).
func (s *EntitlementService) Redeem(ctx context.Context, userID uuid.UUID, code string) (time.Time, error) {
	const op = "entitlement.redeem"

	if !s.vouchers.Enabled() {
		return time.Time{}, domain.Invalid(op, "Voucher redemption is not available")
	}
	if !s.vouchers.Validate(code) {
		return time.Time{}, domain.Invalid(op, "Invalid voucher code")
	}

	repoUser, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.NotFound(op, "user", userID.String())
		}
		return time.Time{}, domain.Internal(err, op, "Failed to retrieve user")
	}
	if repoUser.ProExpiresAt.Valid && repoUser.ProExpiresAt.Time.After(s.now()) {
		return time.Time{}, domain.Conflict(op, "Your PRO access is still active")
	}

	referenceID := fmt.Sprintf("VOUCHER-%s", uuid.New())
	return s.Extend(ctx, userID, domain.PlanMonthly, referenceID, domain.TransactionSourceVoucher)
}

// ManualActivate grants entitlement to the user with the given email.
// Caller authorization (admin check) happens at the handler layer.
func (s *EntitlementService) ManualActivate(ctx context.Context, email string, plan domain.Plan) (time.Time, error) {
	const op = "entitlement.manual_activate"

	email = strings.ToLower(strings.TrimSpace(email))
	repoUser, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.NotFound(op, "user", email)
		}
		return time.Time{}, domain.Internal(err, op, "Failed to retrieve user")
	}

	referenceID := fmt.Sprintf("MANUAL-%s", uuid.New())
	return s.Extend(ctx, repoUser.ID, plan, referenceID, domain.TransactionSourceManual)
}

// rawPayload wraps a JSON body for the nullable jsonb column.
func rawPayload(body []byte) pqtype.NullRawMessage {
	if len(body) == 0 {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: json.RawMessage(body), Valid: true}
}
