package config

import (
	"os"
	"strings"
)

// ShadowValuationEnabled gates the parallel "shadow" purchase valuation.
// When off, every user acts on the real valuation regardless of role.
//
// Set via env:
// - SHADOW_VALUATION_ENABLED=true
func ShadowValuationEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SHADOW_VALUATION_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// StrictPurchaseImmutability enables fintech-grade guardrails:
// committed purchases cannot have their totals edited; payment fields may only
// advance via the clearing workflow.
//
// Set via env:
// - STRICT_PURCHASE_IMMUTABLE=true
func StrictPurchaseImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_PURCHASE_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
