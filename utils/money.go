package utils

import (
	"regexp"
	"strings"
)

var (
	decimalRe  = regexp.MustCompile(`^(0|[1-9][0-9]*)(\.[0-9]{1,2})?$`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
)

// IsDecimalAmount reports whether s is a plain non-negative decimal with at most
// two fraction digits, the way PayPal serializes amount values ("20", "20.00").
func IsDecimalAmount(s string) bool {
	return decimalRe.MatchString(s)
}

// IsCurrencyCode reports whether s looks like an ISO 4217 code.
func IsCurrencyCode(s string) bool {
	return currencyRe.MatchString(s)
}

// NormalizeCurrency trims and upper-cases a currency code.
func NormalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
