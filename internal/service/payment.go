// Package service contains the business logic layer.
//
// This file implements the payment reconciler: it consumes asynchronous
// gateway notifications and turns successful charges into entitlement
// grants, exactly once per order id.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/billing"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/repository"
)

// PaymentStore is the persistence surface the reconciler needs.
// *repository.Store satisfies it.
type PaymentStore interface {
	GetTransactionByOrderID(ctx context.Context, orderID string) (repository.Transaction, error)
	CreateTransaction(ctx context.Context, arg repository.CreateTransactionParams) (repository.Transaction, error)
	MarkTransactionStatus(ctx context.Context, arg repository.MarkTransactionStatusParams) (int64, error)
	ExecGrant(ctx context.Context, fn func(repository.GrantOps) error) error
}

// ChargeInstruction is returned from charge initiation: the pending order
// the gateway will later report on.
type ChargeInstruction struct {
	OrderID       string      `json:"orderId"`
	Plan          domain.Plan `json:"plan"`
	AmountIDR     int64       `json:"amountIdr"`
	AmountDisplay string      `json:"amountDisplay"`
}

// ReconcileResult describes what a notification did.
type ReconcileResult struct {
	OrderID   string
	Status    domain.TransactionStatus
	Extended  bool // entitlement was granted by this notification
	Duplicate bool // order was already terminal; nothing changed
}

// PaymentService initiates charges and reconciles gateway notifications.
type PaymentService struct {
	store     PaymentStore
	serverKey string
	pricing   PlanPricing
	logger    *slog.Logger
	now       func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store PaymentStore, serverKey string, pricing PlanPricing, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:     store,
		serverKey: serverKey,
		pricing:   pricing,
		logger:    logger,
		now:       time.Now,
	}
}

// InitiateCharge creates the pending transaction record the reconciler will
// later look up by order id, and returns payment instructions for the
// client. The checkout UI itself is the gateway's.
func (s *PaymentService) InitiateCharge(ctx context.Context, userID uuid.UUID, plan domain.Plan) (*ChargeInstruction, error) {
	const op = "payment.initiate"

	if !plan.Valid() {
		return nil, domain.Invalid(op, "Plan must be monthly or yearly")
	}

	orderID := billing.OrderID(plan, uuid.New().String())
	amount := s.pricing.AmountFor(plan)

	_, err := s.store.CreateTransaction(ctx, repository.CreateTransactionParams{
		OrderID:   orderID,
		UserID:    userID,
		AmountIdr: amount,
		Plan:      string(plan),
		Status:    string(domain.TransactionStatusPending),
		Source:    string(domain.TransactionSourceGateway),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create charge")
	}

	s.logger.Info("charge initiated",
		"user_id", userID,
		"order_id", orderID,
		"plan", plan,
		"amount", billing.FormatAmountIDR(amount),
	)
	return &ChargeInstruction{
		OrderID:       orderID,
		Plan:          plan,
		AmountIDR:     amount,
		AmountDisplay: billing.FormatAmountIDR(amount),
	}, nil
}

// ProcessNotification reconciles one gateway notification.
//
// The order id is the idempotency key: the transition out of pending is a
// compare-and-swap, so a duplicate notification for an already-terminal
// record changes nothing and never re-extends entitlement. On a successful
// charge the status flip and the entitlement update commit in one database
// transaction.
//
// Returns domain.EUNAUTHORIZED for a bad signature and domain.ENOTFOUND
// when no transaction was pre-created for the order id. Any other internal
// failure is reported but the HTTP layer still acknowledges the gateway.
func (s *PaymentService) ProcessNotification(ctx context.Context, n billing.Notification) (*ReconcileResult, error) {
	const op = "payment.notification"

	if !billing.VerifySignature(n, s.serverKey) {
		return nil, domain.Unauthorized(op, "Invalid notification signature")
	}

	tr, err := s.store.GetTransactionByOrderID(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "transaction", n.OrderID)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve transaction")
	}

	status := billing.MapStatus(n.TransactionStatus, n.FraudStatus)
	payload, _ := json.Marshal(n)

	result := &ReconcileResult{OrderID: n.OrderID, Status: status}

	switch status {
	case domain.TransactionStatusSuccess:
		plan := domain.PlanFromOrderID(n.OrderID)
		expiry := plan.ExpiryFrom(s.now())

		err = s.store.ExecGrant(ctx, func(ops repository.GrantOps) error {
			affected, err := ops.MarkTransactionStatus(ctx, repository.MarkTransactionStatusParams{
				OrderID:    n.OrderID,
				Status:     string(domain.TransactionStatusSuccess),
				RawPayload: rawPayload(payload),
			})
			if err != nil {
				return err
			}
			if affected == 0 {
				// Already terminal: duplicate delivery, skip the grant.
				result.Duplicate = true
				return nil
			}
			result.Extended = true
			return ops.UpdateUserEntitlement(ctx, repository.UpdateUserEntitlementParams{
				ID:           tr.UserID,
				ProExpiresAt: expiry,
			})
		})
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to apply successful payment")
		}

		if result.Duplicate {
			s.logger.Info("duplicate payment notification ignored", "order_id", n.OrderID)
		} else {
			s.logger.Info("payment settled",
				"order_id", n.OrderID,
				"user_id", tr.UserID,
				"plan", plan,
				"expires_at", expiry,
			)
		}

	case domain.TransactionStatusFailed:
		affected, err := s.store.MarkTransactionStatus(ctx, repository.MarkTransactionStatusParams{
			OrderID:    n.OrderID,
			Status:     string(domain.TransactionStatusFailed),
			RawPayload: rawPayload(payload),
		})
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to record failed payment")
		}
		result.Duplicate = affected == 0
		s.logger.Info("payment failed",
			"order_id", n.OrderID,
			"gateway_status", n.TransactionStatus,
		)

	default:
		// Pending or unrecognized: leave the stored status untouched.
		s.logger.Debug("payment notification left pending",
			"order_id", n.OrderID,
			"gateway_status", n.TransactionStatus,
		)
	}

	return result, nil
}
