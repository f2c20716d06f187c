package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/ai"
	"github.com/praktika-app/praktika/internal/repository"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default Claude model to use
	DefaultModel = "claude-3-5-sonnet-20241022"

	// MaxInputChars bounds the combined size of the student's notes
	MaxInputChars = 50_000

	// Pricing in cents per 1M tokens for claude-3-5-sonnet
	PricingInputCents  = 300  // $3 per 1M input tokens
	PricingOutputCents = 1500 // $15 per 1M output tokens
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements the ai.Provider interface using Anthropic's Claude API
type Provider struct {
	config  Config
	client  *http.Client
	queries *repository.Queries
	logger  *slog.Logger
}

// New creates a new Anthropic AI provider
func New(config Config, queries *repository.Queries, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 120 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		queries: queries,
		logger:  logger,
	}, nil
}

// GenerateReport drafts a practicum report from the student's notes using Claude
func (p *Provider) GenerateReport(ctx context.Context, params ai.GenerateReportParams) (*ai.ReportResult, error) {
	startTime := time.Now()

	if err := p.validateParams(params); err != nil {
		return nil, ai.WrapError("generate report", err)
	}

	req, err := p.buildGenerateRequest(ctx, params)
	if err != nil {
		return nil, ai.WrapError("build request", err)
	}

	resp, err := p.executeWithRetry(ctx, req)
	if err != nil {
		return nil, ai.WrapError("execute request", err)
	}

	result, err := p.parseReportResponse(resp)
	if err != nil {
		return nil, ai.WrapError("parse response", err)
	}

	duration := time.Since(startTime)
	result.Usage = ai.UsageInfo{
		Model:        p.config.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostCents:    p.calculateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Duration:     duration,
	}

	if err := p.trackUsage(ctx, params.UserID, params.ReportID, result.Usage); err != nil {
		// Log but don't fail the request
		p.logger.Error("Failed to track AI usage", "error", err)
	}

	return result, nil
}

// validateParams validates the generation parameters
func (p *Provider) validateParams(params ai.GenerateReportParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	total := len(params.Title) + len(params.Course) + len(params.Objective) +
		len(params.Methods) + len(params.Observations)
	if total > MaxInputChars {
		return fmt.Errorf("%w: input size %d exceeds maximum %d", ai.EAIInvalidInput, total, MaxInputChars)
	}
	return nil
}

// buildGenerateRequest builds the HTTP request for report generation
func (p *Provider) buildGenerateRequest(ctx context.Context, params ai.GenerateReportParams) (*http.Request, error) {
	reqBody := apiRequest{
		Model:     p.config.Model,
		MaxTokens: 8192,
		System:    systemPrompt,
		Messages: []apiMessage{
			{
				Role: "user",
				Content: []apiContent{
					{
						Type: "text",
						Text: buildReportPrompt(params),
					},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", APIBaseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	return req, nil
}

// executeWithRetry executes an HTTP request with exponential backoff retry
func (p *Provider) executeWithRetry(ctx context.Context, req *http.Request) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		resp, err := p.executeRequest(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !ai.IsRetryable(err) {
			return nil, err
		}

		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		// Exponential backoff: base * 2^(attempt-1)
		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// Recreate the request body since the previous attempt consumed it
		if req.Body != nil {
			bodyBytes, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, fmt.Errorf("read request body for retry: %w", err)
			}
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	return nil, lastErr
}

// executeRequest executes a single HTTP request
func (p *Provider) executeRequest(ctx context.Context, req *http.Request) (*apiResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors are typically retryable
		return nil, ai.EAIUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// mapHTTPError maps HTTP status codes to provider errors
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized:
		return ai.EAIUnauthorized
	case http.StatusTooManyRequests:
		return ai.EAIRateLimit
	case http.StatusRequestTimeout:
		return ai.EAITimeout
	case http.StatusBadRequest:
		if errResp.Error.Type == "invalid_request_error" {
			return ai.EAIInvalidInput
		}
		return fmt.Errorf("bad request: %s", errResp.Error.Message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ai.EAIUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// parseReportResponse parses the API response into a ReportResult
func (p *Provider) parseReportResponse(resp *apiResponse) (*ai.ReportResult, error) {
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response content")
	}

	var textContent string
	for _, content := range resp.Content {
		if content.Type == "text" {
			textContent = content.Text
			break
		}
	}

	if textContent == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	var output reportOutput
	if err := json.Unmarshal([]byte(textContent), &output); err != nil {
		return nil, fmt.Errorf("parse report output: %w", err)
	}
	if len(output.Sections) == 0 {
		return nil, fmt.Errorf("report output has no sections")
	}

	result := &ai.ReportResult{
		Sections: make([]ai.Section, 0, len(output.Sections)),
		Summary:  output.Summary,
	}
	for _, s := range output.Sections {
		result.Sections = append(result.Sections, ai.Section{
			Heading: s.Heading,
			Body:    s.Body,
		})
	}

	return result, nil
}

// calculateCost calculates the cost in cents for the given token usage
func (p *Provider) calculateCost(inputTokens, outputTokens int) int {
	inputCost := (inputTokens * PricingInputCents) / 1_000_000
	outputCost := (outputTokens * PricingOutputCents) / 1_000_000
	return inputCost + outputCost
}

// trackUsage records AI usage in the database
func (p *Provider) trackUsage(ctx context.Context, userID, reportID uuid.UUID, usage ai.UsageInfo) error {
	_, err := p.queries.CreateAIUsage(ctx, repository.CreateAIUsageParams{
		UserID: userID,
		ReportID: uuid.NullUUID{
			UUID:  reportID,
			Valid: reportID != uuid.Nil,
		},
		Model:        usage.Model,
		InputTokens:  int32(usage.InputTokens),
		OutputTokens: int32(usage.OutputTokens),
		CostCents:    int32(usage.CostCents),
	})
	return err
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []apiContentOutput `json:"content"`
	Model   string             `json:"model"`
	Usage   apiUsage           `json:"usage"`
}

type apiContentOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// reportOutput represents the JSON structure returned by Claude
type reportOutput struct {
	Sections []outputSection `json:"sections"`
	Summary  string          `json:"summary"`
}

type outputSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}
