// Package billing translates payment-gateway callbacks into internal
// transaction state.
//
// The gateway delivers asynchronous status notifications keyed by order id
// and authenticated with a SHA-512 signature over the order id, status code,
// gross amount, and the merchant server key.
package billing

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/praktika-app/praktika/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notification is the payload the gateway posts to the webhook endpoint.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// MapStatus maps a gateway-reported status to the internal transaction
// status:
//
//	capture/settlement with fraud accept or absent -> success
//	pending                                        -> pending
//	deny/expire/cancel                             -> failed
//	anything else                                  -> pending (unchanged)
func MapStatus(transactionStatus, fraudStatus string) domain.TransactionStatus {
	switch transactionStatus {
	case "capture", "settlement":
		if fraudStatus == "" || fraudStatus == "accept" {
			return domain.TransactionStatusSuccess
		}
		return domain.TransactionStatusPending
	case "pending":
		return domain.TransactionStatusPending
	case "deny", "expire", "cancel":
		return domain.TransactionStatusFailed
	default:
		return domain.TransactionStatusPending
	}
}

// Signature computes the notification signature for the given fields and
// server key: hex(sha512(orderID + statusCode + grossAmount + serverKey)).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks the notification's signature against the server
// key. When no server key is configured, verification is skipped (local
// development against a sandbox gateway).
func VerifySignature(n Notification, serverKey string) bool {
	if serverKey == "" {
		return true
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) == 1
}

// OrderID builds a unique order identifier for a new charge. Yearly orders
// embed the plan marker so the reconciler can recover the plan kind from the
// id alone.
func OrderID(plan domain.Plan, ref string) string {
	if plan == domain.PlanYearly {
		return fmt.Sprintf("PRK-%s-%s", domain.YearlyOrderMarker, ref)
	}
	return fmt.Sprintf("PRK-%s", ref)
}

// idPrinter formats amounts with Indonesian digit grouping.
var idPrinter = message.NewPrinter(language.Indonesian)

// FormatAmountIDR renders a whole-rupiah amount for receipts and logs,
// e.g. 120000 -> "Rp120.000".
func FormatAmountIDR(amount int64) string {
	return idPrinter.Sprintf("Rp%d", amount)
}
