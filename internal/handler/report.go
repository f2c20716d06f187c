// This file implements report generation and retrieval endpoints.
//
// Routes (all require an authenticated user):
//   - POST /api/reports                -> HandleGenerate
//   - GET  /api/reports                -> HandleList
//   - GET  /api/reports/{id}           -> HandleGet
//   - GET  /api/reports/{id}/download  -> HandleDownload
//   - GET  /api/usage                  -> HandleUsage
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/auth"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/metrics"
	"github.com/praktika-app/praktika/internal/service"
)

// ReportHandler handles report generation and retrieval.
type ReportHandler struct {
	reports *service.ReportService
	quota   *service.QuotaService
	logger  *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *service.ReportService, quota *service.QuotaService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		quota:   quota,
		logger:  logger,
	}
}

type reportResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Course    string    `json:"course,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

func toReportResponse(r domain.Report) reportResponse {
	return reportResponse{
		ID:        r.ID.String(),
		Title:     r.Title,
		Course:    r.Course,
		Summary:   r.Summary,
		CreatedAt: r.CreatedAt,
	}
}

// HandleGenerate runs the quota gate and generates one report.
func (h *ReportHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var input domain.ReportInput
	if err := decodeJSON(r, &input); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	generated, err := h.reports.Generate(r.Context(), user.ID, input, nil)
	if err != nil {
		if domain.ErrorCode(err) == domain.ERATELIMIT {
			tier := "free"
			if user.IsProActive() {
				tier = "pro"
			}
			metrics.QuotaDenials.WithLabelValues(tier).Inc()
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	metrics.ReportsGenerated.Inc()
	metrics.AIAPICalls.WithLabelValues("success").Inc()
	metrics.AITokensTotal.WithLabelValues("input").Add(float64(generated.Usage.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(generated.Usage.OutputTokens))
	metrics.AICostCentsTotal.Add(float64(generated.Usage.CostCents))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"report":   toReportResponse(generated.Report),
		"markdown": generated.Markdown,
	})
}

// HandleList returns the user's reports, newest first.
func (h *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	reports, err := h.reports.List(r.Context(), user.ID, 0)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	items := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		items = append(items, toReportResponse(rep))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": items})
}

// HandleGet returns one report's metadata.
func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	reportID, err := parseIDPathValue(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	report, err := h.reports.Get(r.Context(), user.ID, reportID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"report": toReportResponse(*report)})
}

// HandleDownload streams the stored markdown document.
func (h *ReportHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	reportID, err := parseIDPathValue(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	body, err := h.reports.Download(r.Context(), user.ID, reportID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="laporan-`+reportID.String()+`.md"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// HandleUsage returns the user's remaining quota for today.
func (h *ReportHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	usage, err := h.quota.GetUsage(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

// parseIDPathValue reads the {id} path value as a UUID.
func parseIDPathValue(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid("", "Invalid id")
	}
	return id, nil
}
