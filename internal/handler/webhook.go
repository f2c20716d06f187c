// This file implements the payment gateway notification endpoint.
//
// Route:
//   - POST /webhooks/payment -> HandlePaymentNotification
//
// This route is PUBLIC (no auth middleware) because the gateway calls it
// directly. Authentication is the SHA-512 signature inside the payload.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/praktika-app/praktika/internal/billing"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/metrics"
	"github.com/praktika-app/praktika/internal/service"
)

// WebhookHandler handles incoming payment gateway notifications.
type WebhookHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(payments *service.PaymentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		logger:   logger,
	}
}

// HandlePaymentNotification processes one gateway notification.
//
// The gateway retries non-2xx responses, so every processed notification is
// acknowledged with 200 even when it maps to a failed charge, a duplicate,
// or an unknown order. Only a bad signature earns a 400: that is not the
// gateway re-sending a legitimate event.
func (h *WebhookHandler) HandlePaymentNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read notification body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var n billing.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		h.logger.Warn("malformed notification payload", "error", err)
		metrics.PaymentNotifications.WithLabelValues("rejected").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result, err := h.payments.ProcessNotification(r.Context(), n)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED:
			h.logger.Warn("notification signature verification failed", "order_id", n.OrderID)
			metrics.PaymentNotifications.WithLabelValues("rejected").Inc()
			w.WriteHeader(http.StatusBadRequest)
			return
		case domain.ENOTFOUND:
			// Unknown order id: nothing to reconcile, and retrying will not
			// change that. Ack so the gateway stops resending.
			h.logger.Warn("notification for unknown order", "order_id", n.OrderID)
			metrics.PaymentNotifications.WithLabelValues("rejected").Inc()
			h.ack(w)
			return
		default:
			// Internal failure: ack anyway and rely on logs/metrics. A 5xx
			// would make the gateway hammer an endpoint that may be broken
			// for unrelated reasons.
			h.logger.Error("notification processing failed", "order_id", n.OrderID, "error", err)
			metrics.PaymentNotifications.WithLabelValues("error").Inc()
			h.ack(w)
			return
		}
	}

	outcome := string(result.Status)
	if result.Duplicate {
		outcome = "duplicate"
	}
	metrics.PaymentNotifications.WithLabelValues(outcome).Inc()

	if result.Extended {
		metrics.EntitlementGrants.WithLabelValues(string(domain.TransactionSourceGateway)).Inc()
	}

	h.ack(w)
}

func (h *WebhookHandler) ack(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
