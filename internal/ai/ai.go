package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider defines the interface for AI-powered practicum report generation
type Provider interface {
	// GenerateReport drafts a complete practicum report from the student's
	// raw lab notes
	GenerateReport(ctx context.Context, params GenerateReportParams) (*ReportResult, error)
}

// GenerateReportParams contains the student's input for report generation
type GenerateReportParams struct {
	Title        string    // Practicum title (e.g., "Titrasi Asam Basa")
	Course       string    // Course or subject name
	Objective    string    // What the practicum was meant to demonstrate
	Methods      string    // Procedure the student followed
	Observations string    // Raw data and observations from the lab
	ReportID     uuid.UUID // Report ID for tracking
	UserID       uuid.UUID // User ID for usage tracking
}

// Validate checks that the params carry enough material to write a report
func (p GenerateReportParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", EAIInvalidInput)
	}
	if strings.TrimSpace(p.Objective) == "" {
		return fmt.Errorf("%w: objective is required", EAIInvalidInput)
	}
	if strings.TrimSpace(p.Observations) == "" {
		return fmt.Errorf("%w: observations are required", EAIInvalidInput)
	}
	return nil
}

// ReportResult contains the generated report and usage accounting
type ReportResult struct {
	Sections []Section // Generated report sections in document order
	Summary  string    // One-paragraph abstract of the report
	Usage    UsageInfo // Token usage and cost information
}

// Section is a single titled block of the generated report
type Section struct {
	Heading string // Section heading (e.g., "Dasar Teori")
	Body    string // Markdown body text
}

// Markdown renders the full report as a markdown document
func (r *ReportResult) Markdown() string {
	var b strings.Builder
	for i, s := range r.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(s.Heading)
		b.WriteString("\n\n")
		b.WriteString(s.Body)
	}
	return b.String()
}

// UsageInfo tracks API usage for billing and monitoring
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	CostCents    int           // Estimated cost in cents
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIInvalidInput indicates the generation input is unusable
	EAIInvalidInput = errors.New("invalid report input")

	// EAIContentPolicy indicates the input violates content policy
	EAIContentPolicy = errors.New("input violates content policy")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
