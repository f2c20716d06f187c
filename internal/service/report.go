// Package service contains the business logic layer.
//
// This file implements report generation: the daily quota gate, the AI
// draft, document storage, and the usage increment that follows a
// successful generation.
package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/ai"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/repository"
	"github.com/praktika-app/praktika/internal/storage"
)

// ReportStore is the persistence surface report generation needs.
// *repository.Store satisfies it.
type ReportStore interface {
	CreateReport(ctx context.Context, arg repository.CreateReportParams) (repository.Report, error)
	GetReportByID(ctx context.Context, id uuid.UUID) (repository.Report, error)
	ListReportsByUser(ctx context.Context, arg repository.ListReportsByUserParams) ([]repository.Report, error)
}

// GeneratedReport is the result of a successful generation: the stored
// metadata plus the rendered document.
type GeneratedReport struct {
	Report   domain.Report
	Markdown string
	Usage    ai.UsageInfo
}

// ReportService generates and serves practicum reports.
type ReportService struct {
	store    ReportStore
	quota    *QuotaService
	provider ai.Provider
	files    storage.Storage
	logger   *slog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(store ReportStore, quota *QuotaService, provider ai.Provider, files storage.Storage, logger *slog.Logger) *ReportService {
	return &ReportService{
		store:    store,
		quota:    quota,
		provider: provider,
		files:    files,
		logger:   logger,
	}
}

// Generate runs the full pipeline for one report.
//
// The quota gate runs before any expensive work; a denied check surfaces
// as an ERATELIMIT error without touching the AI provider. The usage
// counter is incremented only after the report has been generated and
// stored, so a failed generation never consumes quota. If the increment
// itself fails the report is still returned; the student should not lose
// a finished document over a bookkeeping error.
func (s *ReportService) Generate(ctx context.Context, userID uuid.UUID, input domain.ReportInput, overrideLimit *int) (*GeneratedReport, error) {
	const op = "report.generate"

	if err := validateReportInput(input); err != nil {
		return nil, err
	}

	if _, err := s.quota.CheckQuota(ctx, userID, overrideLimit); err != nil {
		return nil, err
	}

	reportID := uuid.New()
	result, err := s.provider.GenerateReport(ctx, ai.GenerateReportParams{
		Title:        input.Title,
		Course:       input.Course,
		Objective:    input.Objective,
		Methods:      input.Methods,
		Observations: input.Observations,
		ReportID:     reportID,
		UserID:       userID,
	})
	if err != nil {
		return nil, mapAIError(op, err)
	}

	markdown := result.Markdown()
	key := storage.ReportKey(userID, reportID)
	err = s.files.Put(ctx, key, strings.NewReader(markdown), storage.PutOptions{
		ContentType: "text/markdown; charset=utf-8",
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to store report")
	}

	row, err := s.store.CreateReport(ctx, repository.CreateReportParams{
		ID:         reportID,
		UserID:     userID,
		Title:      input.Title,
		Course:     input.Course,
		Summary:    result.Summary,
		StorageKey: key,
		Model:      result.Usage.Model,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to save report")
	}

	if err := s.quota.IncrementUsage(ctx, userID); err != nil {
		s.logger.Error("failed to increment usage after generation",
			"user_id", userID,
			"report_id", reportID,
			"error", err,
		)
	}

	s.logger.Info("report generated",
		"user_id", userID,
		"report_id", reportID,
		"model", result.Usage.Model,
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
	)

	return &GeneratedReport{
		Report:   repoReportToDomain(row),
		Markdown: markdown,
		Usage:    result.Usage,
	}, nil
}

// Get returns one report's metadata, enforcing ownership.
func (s *ReportService) Get(ctx context.Context, userID, reportID uuid.UUID) (*domain.Report, error) {
	const op = "report.get"

	row, err := s.store.GetReportByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "report", reportID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve report")
	}
	if row.UserID != userID {
		// Hide other users' reports entirely.
		return nil, domain.NotFound(op, "report", reportID.String())
	}

	r := repoReportToDomain(row)
	return &r, nil
}

// Download returns the stored document body for a report the user owns.
func (s *ReportService) Download(ctx context.Context, userID, reportID uuid.UUID) (string, error) {
	const op = "report.download"

	r, err := s.Get(ctx, userID, reportID)
	if err != nil {
		return "", err
	}

	body, _, err := s.files.Get(ctx, r.StorageKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", domain.NotFound(op, "report document", reportID.String())
		}
		return "", domain.Internal(err, op, "Failed to read report document")
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", domain.Internal(err, op, "Failed to read report document")
	}
	return string(data), nil
}

// List returns the user's most recent reports, newest first.
func (s *ReportService) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Report, error) {
	const op = "report.list"

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.store.ListReportsByUser(ctx, repository.ListReportsByUserParams{
		UserID: userID,
		Limit:  int32(limit),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list reports")
	}

	reports := make([]domain.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, repoReportToDomain(row))
	}
	return reports, nil
}

func validateReportInput(input domain.ReportInput) error {
	const op = "report.validate"
	if strings.TrimSpace(input.Title) == "" {
		return domain.Invalid(op, "Title is required")
	}
	if strings.TrimSpace(input.Objective) == "" {
		return domain.Invalid(op, "Objective is required")
	}
	if strings.TrimSpace(input.Observations) == "" {
		return domain.Invalid(op, "Observations are required")
	}
	return nil
}

// mapAIError translates provider failures into domain errors the HTTP
// layer knows how to present.
func mapAIError(op string, err error) error {
	switch {
	case errors.Is(err, ai.EAIInvalidInput):
		return domain.Invalid(op, "Report input could not be used for generation")
	case errors.Is(err, ai.EAIRateLimit), errors.Is(err, ai.EAIUnavailable), errors.Is(err, ai.EAITimeout):
		return domain.Internal(err, op, "Report generation is temporarily unavailable, please try again")
	default:
		return domain.Internal(err, op, "Failed to generate report")
	}
}

func repoReportToDomain(r repository.Report) domain.Report {
	return domain.Report{
		ID:         r.ID,
		UserID:     r.UserID,
		Title:      r.Title,
		Course:     r.Course,
		Summary:    r.Summary,
		StorageKey: r.StorageKey,
		Model:      r.Model,
		CreatedAt:  r.CreatedAt.Time,
	}
}
