package logger

import (
	"regexp"
	"strings"
)

// Sensitive field patterns to filter from logs
var (
	passwordPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s]+`)
	tokenPattern    = regexp.MustCompile(`(?i)(token|bearer)[\s:=]+[^\s]+`)
	basicPattern    = regexp.MustCompile(`(?i)(basic)\s+[A-Za-z0-9+/=]+`)
	secretPattern   = regexp.MustCompile(`(?i)(secret|api[_-]?key)[\s:=]+[^\s]+`)
	userInfoPattern = regexp.MustCompile(`(://[^/\s:@]+):[^/\s@]+@`)
)

const redactedPlaceholder = "[REDACTED]"

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"authorization", "token", "bearer",
	"secret", "api_key", "apikey", "api-key",
}

// SanitizeLogMessage removes credentials from free-form text.
func SanitizeLogMessage(message string) string {
	message = passwordPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = tokenPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = basicPattern.ReplaceAllString(message, "${1} "+redactedPlaceholder)
	message = secretPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	// user:pass@host in URLs
	message = userInfoPattern.ReplaceAllString(message, "${1}:"+redactedPlaceholder+"@")
	return message
}

// IsSensitiveKey reports whether an attribute key names a credential.
func IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitiveKey := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitiveKey) {
			return true
		}
	}
	return false
}
