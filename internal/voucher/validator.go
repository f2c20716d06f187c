// Package voucher validates PRO redemption codes.
package voucher

import (
	"crypto/subtle"
	"strings"
)

// Validator checks redemption codes against the configured secrets.
// Codes are held in memory from configuration; redemption is disabled when
// no codes are configured.
type Validator struct {
	codes []string
}

// New creates a validator from the configured codes, normalized and
// deduplicated.
func New(codes []string) *Validator {
	seen := make(map[string]bool)
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		norm := strings.TrimSpace(strings.ToUpper(code))
		if norm != "" && !seen[norm] {
			seen[norm] = true
			normalized = append(normalized, norm)
		}
	}
	return &Validator{codes: normalized}
}

// Enabled reports whether any redemption codes are configured.
func (v *Validator) Enabled() bool {
	return len(v.codes) > 0
}

// Validate checks whether the provided code matches a configured secret.
//
// All configured codes are compared in constant time regardless of which
// one matches, so response timing reveals nothing about the secrets.
func (v *Validator) Validate(code string) bool {
	normalized := strings.TrimSpace(strings.ToUpper(code))
	if normalized == "" {
		return false
	}

	found := 0
	for _, valid := range v.codes {
		a := []byte(normalized)
		b := []byte(valid)
		if subtle.ConstantTimeEq(int32(len(a)), int32(len(b))) == 1 {
			found |= subtle.ConstantTimeCompare(a, b)
		}
	}
	return found == 1
}
