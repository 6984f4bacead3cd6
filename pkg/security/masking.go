package security

import (
	"regexp"
	"strings"
)

var (
	// Patterns for values that should not reach the logs in full
	evmAddressPattern  = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	tronAddressPattern = regexp.MustCompile(`\bT[1-9A-HJ-NP-Za-km-z]{33}\b`)
	btcAddressPattern  = regexp.MustCompile(`\b(bc1[02-9ac-hj-np-z]{11,71}|[13][1-9A-HJ-NP-Za-km-z]{25,34})\b`)
	jwtPattern         = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)
	bearerPattern      = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]+`)

	sensitiveFields = []string{
		"password", "secret", "token", "authorization", "api_key", "apikey",
		"private_key", "seed", "mnemonic", "credential",
	}
)

// MaskString masks wallet addresses and credentials found anywhere in s
func MaskString(s string) string {
	s = jwtPattern.ReplaceAllString(s, "eyJ***REDACTED***")
	s = bearerPattern.ReplaceAllString(s, "Bearer ***REDACTED***")
	s = evmAddressPattern.ReplaceAllStringFunc(s, MaskAddress)
	s = tronAddressPattern.ReplaceAllStringFunc(s, MaskAddress)
	s = btcAddressPattern.ReplaceAllStringFunc(s, MaskAddress)
	return s
}

// MaskAddress keeps the first 6 and last 4 characters of a destination address.
func MaskAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) < 12 {
		return strings.Repeat("*", len(addr))
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// MaskTxHash shortens a transaction hash for log lines
func MaskTxHash(hash *string) string {
	if hash == nil {
		return ""
	}
	h := strings.TrimSpace(*hash)
	if len(h) <= 16 {
		return h
	}
	return h[:10] + "..." + h[len(h)-6:]
}

// MaskMap redacts sensitive keys and masks string values, recursing into nested maps
func MaskMap(data map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(data))
	for k, v := range data {
		if isSensitiveField(k) {
			masked[k] = "***REDACTED***"
			continue
		}

		switch val := v.(type) {
		case string:
			masked[k] = MaskString(val)
		case map[string]interface{}:
			masked[k] = MaskMap(val)
		default:
			masked[k] = v
		}
	}
	return masked
}

// RedactHeaders flattens headers, hiding credentials
func RedactHeaders(headers map[string][]string) map[string]string {
	redacted := make(map[string]string, len(headers))
	for k, v := range headers {
		lower := strings.ToLower(k)
		if lower == "authorization" || lower == "cookie" || lower == "x-api-key" {
			redacted[k] = "***REDACTED***"
			continue
		}
		if len(v) > 0 {
			redacted[k] = v[0]
		}
	}
	return redacted
}

func isSensitiveField(field string) bool {
	lower := strings.ToLower(field)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
