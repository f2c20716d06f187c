package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/praktika-app/praktika/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	GenerateReportResponse *ai.ReportResult
	GenerateReportError    error

	// Call tracking for testing
	GenerateReportCalls int
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// GenerateReport returns a canned practicum report
func (p *Provider) GenerateReport(ctx context.Context, params ai.GenerateReportParams) (*ai.ReportResult, error) {
	p.GenerateReportCalls++

	// If a custom response or error is set, use it
	if p.GenerateReportError != nil {
		return nil, p.GenerateReportError
	}
	if p.GenerateReportResponse != nil {
		return p.GenerateReportResponse, nil
	}

	if err := params.Validate(); err != nil {
		return nil, ai.WrapError("generate report", err)
	}

	// Default canned response echoing the student's input
	return &ai.ReportResult{
		Sections: []ai.Section{
			{
				Heading: "Tujuan",
				Body:    params.Objective,
			},
			{
				Heading: "Dasar Teori",
				Body:    "Landasan teori singkat yang relevan dengan praktikum " + params.Title + ".",
			},
			{
				Heading: "Prosedur Kerja",
				Body:    params.Methods,
			},
			{
				Heading: "Hasil Pengamatan",
				Body:    params.Observations,
			},
			{
				Heading: "Pembahasan",
				Body:    "Hasil pengamatan sesuai dengan teori yang mendasari percobaan. Penyimpangan kecil kemungkinan berasal dari kesalahan pembacaan alat.",
			},
			{
				Heading: "Kesimpulan",
				Body:    "Tujuan praktikum tercapai berdasarkan data yang diperoleh.",
			},
		},
		Summary: "Laporan praktikum " + params.Title + " yang disusun dari catatan mahasiswa.",
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  1250,
			OutputTokens: 850,
			CostCents:    5,
			Duration:     250 * time.Millisecond,
		},
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.GenerateReportCalls = 0
	p.GenerateReportResponse = nil
	p.GenerateReportError = nil
}
