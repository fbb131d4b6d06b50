package log

import (
	"strings"
)

// sensitiveKeywords are matched case-insensitively against log field keys.
var sensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"api_key", "apikey", "api-key",
	"token", "secret", "authorization",
	"credential", "private_key", "dsn",
}

// SanitizeField masks the value when the key names a secret.
// Connection strings are masked whole apart from the host part.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)

	for _, keyword := range sensitiveKeywords {
		if !strings.Contains(lowerKey, keyword) {
			continue
		}
		if keyword == "dsn" {
			return sanitizeDSN(value)
		}
		return sanitizeToken(value)
	}

	return value
}

// sanitizeToken masks token/password values showing only first 4 and last 4 characters
func sanitizeToken(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}

	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// sanitizeDSN hides the credentials of a user:pass@tcp(host)/db style DSN.
func sanitizeDSN(value string) string {
	at := strings.LastIndex(value, "@")
	if at < 0 {
		return sanitizeToken(value)
	}
	return "***" + value[at:]
}
