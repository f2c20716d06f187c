// This file implements billing endpoints: checkout, voucher redemption,
// plan listing, and the admin activation backdoor for support cases.
//
// Routes:
//   - GET  /api/billing/plans     -> HandlePlans (public)
//   - POST /api/billing/checkout  -> HandleCheckout (auth)
//   - POST /api/billing/voucher   -> HandleVoucher (auth)
//   - POST /api/admin/activate    -> HandleAdminActivate (admin)
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/praktika-app/praktika/internal/auth"
	"github.com/praktika-app/praktika/internal/billing"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/metrics"
	"github.com/praktika-app/praktika/internal/service"
)

// BillingHandler handles checkout, vouchers, and admin activation.
type BillingHandler struct {
	payments     *service.PaymentService
	entitlements *service.EntitlementService
	pricing      service.PlanPricing
	logger       *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(payments *service.PaymentService, entitlements *service.EntitlementService, pricing service.PlanPricing, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		payments:     payments,
		entitlements: entitlements,
		pricing:      pricing,
		logger:       logger,
	}
}

// HandlePlans lists the purchasable plans with display prices.
func (h *BillingHandler) HandlePlans(w http.ResponseWriter, r *http.Request) {
	type planInfo struct {
		Plan          domain.Plan `json:"plan"`
		AmountIDR     int64       `json:"amountIdr"`
		AmountDisplay string      `json:"amountDisplay"`
		Duration      string      `json:"duration"`
	}

	plans := []planInfo{
		{
			Plan:          domain.PlanMonthly,
			AmountIDR:     h.pricing.MonthlyIDR,
			AmountDisplay: billing.FormatAmountIDR(h.pricing.MonthlyIDR),
			Duration:      "30 days",
		},
		{
			Plan:          domain.PlanYearly,
			AmountIDR:     h.pricing.YearlyIDR,
			AmountDisplay: billing.FormatAmountIDR(h.pricing.YearlyIDR),
			Duration:      "1 year",
		},
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

// HandleCheckout creates a pending charge for the chosen plan.
func (h *BillingHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Plan string `json:"plan"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	instruction, err := h.payments.InitiateCharge(r.Context(), user.ID, domain.Plan(req.Plan))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"charge": instruction})
}

// HandleVoucher redeems a voucher code for one month of PRO.
func (h *BillingHandler) HandleVoucher(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	expiresAt, err := h.entitlements.Redeem(r.Context(), user.ID, req.Code)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	metrics.EntitlementGrants.WithLabelValues(string(domain.TransactionSourceVoucher)).Inc()
	writeJSON(w, http.StatusOK, proActivatedResponse(expiresAt))
}

// HandleAdminActivate grants PRO to an account by email. Used for support
// cases where a payment was confirmed out of band.
func (h *BillingHandler) HandleAdminActivate(w http.ResponseWriter, r *http.Request) {
	admin := auth.GetUserFromRequest(r)
	if admin == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Email string `json:"email"`
		Plan  string `json:"plan"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Plan == "" {
		req.Plan = string(domain.PlanMonthly)
	}

	expiresAt, err := h.entitlements.ManualActivate(r.Context(), req.Email, domain.Plan(req.Plan))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("manual activation",
		"admin_id", admin.ID,
		"target_email", req.Email,
		"plan", req.Plan,
		"expires_at", expiresAt,
	)

	metrics.EntitlementGrants.WithLabelValues(string(domain.TransactionSourceManual)).Inc()
	writeJSON(w, http.StatusOK, proActivatedResponse(expiresAt))
}

func proActivatedResponse(expiresAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":       "pro_activated",
		"proExpiresAt": expiresAt,
	}
}
