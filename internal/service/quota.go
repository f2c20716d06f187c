// Package service contains the business logic layer.
//
// This file implements the quota gate: the daily generation limit check and
// the usage ledger increment.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/repository"
)

// QuotaStore is the persistence surface the quota gate needs.
// *repository.Store satisfies it.
type QuotaStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	GetDailyUsage(ctx context.Context, userID uuid.UUID, day time.Time) (int32, error)
	IncrementDailyUsage(ctx context.Context, userID uuid.UUID, day time.Time) (repository.UsageRecord, error)
}

// QuotaService is the quota gate. Checking and incrementing are deliberately
// separate operations: callers check before the metered action and increment
// only after it succeeds, so a failed generation never consumes quota.
type QuotaService struct {
	store  QuotaStore
	logger *slog.Logger
	now    func() time.Time
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store QuotaStore, logger *slog.Logger) *QuotaService {
	return &QuotaService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CheckQuota evaluates whether the user may run another generation today.
//
// The returned QuotaCheck always carries the computed figures. When the
// limit is reached the error is a domain.ERATELIMIT whose message embeds the
// daily limit; the check itself never mutates the ledger.
//
// overrideLimit, when non-nil, replaces the PRO/free default.
func (s *QuotaService) CheckQuota(ctx context.Context, userID uuid.UUID, overrideLimit *int) (*domain.QuotaCheck, error) {
	const op = "quota.check"

	check, err := s.evaluate(ctx, op, userID, overrideLimit)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		s.logger.Info("daily quota exceeded",
			"user_id", userID,
			"used", check.Used,
			"limit", check.Limit,
			"pro_active", check.ProActive,
		)
		return check, domain.QuotaExceeded(op, check.Used, check.Limit)
	}
	return check, nil
}

// GetUsage returns the client-facing view of today's usage. It reuses the
// exact computation the gate enforces, so the display can never diverge.
func (s *QuotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*domain.QuotaUsage, error) {
	const op = "quota.get_usage"

	check, err := s.evaluate(ctx, op, userID, nil)
	if err != nil {
		return nil, err
	}
	return &domain.QuotaUsage{
		Used:        check.Used,
		Remaining:   check.Remaining(),
		MaxDaily:    check.Limit,
		CanGenerate: check.Allowed,
	}, nil
}

// IncrementUsage records one completed generation against today's ledger row
// via an atomic create-or-increment. Safe under concurrent calls for the
// same user and day: the upsert serializes in the database, so N parallel
// calls add exactly N.
//
// Failures here are non-fatal to the caller's already-completed operation;
// the caller logs and moves on.
func (s *QuotaService) IncrementUsage(ctx context.Context, userID uuid.UUID) error {
	const op = "quota.increment"

	day := domain.UsageDay(s.now())
	record, err := s.store.IncrementDailyUsage(ctx, userID, day)
	if err != nil {
		return domain.Internal(err, op, "Failed to record usage")
	}

	s.logger.Debug("usage recorded",
		"user_id", userID,
		"day", day.Format("2006-01-02"),
		"count", record.Count,
	)
	return nil
}

// evaluate is the single source of truth for the limit formula, shared by
// CheckQuota and GetUsage.
func (s *QuotaService) evaluate(ctx context.Context, op string, userID uuid.UUID, overrideLimit *int) (*domain.QuotaCheck, error) {
	repoUser, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	now := s.now()
	proActive := repoUser.ProExpiresAt.Valid && repoUser.ProExpiresAt.Time.After(now)
	limit := domain.DailyLimitFor(proActive, overrideLimit)

	used, err := s.store.GetDailyUsage(ctx, userID, domain.UsageDay(now))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Internal(err, op, "Failed to load usage")
		}
		used = 0 // no row yet today
	}

	return &domain.QuotaCheck{
		Allowed:   int(used) < limit,
		Used:      int(used),
		Limit:     limit,
		ProActive: proActive,
		UserID:    userID,
	}, nil
}
