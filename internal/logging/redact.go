package logging

import (
	"regexp"
	"strings"
)

// Payload keys whose values never reach the log.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
}

var (
	emailPattern = regexp.MustCompile(`([A-Za-z0-9._%+-])[A-Za-z0-9._%+-]*@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)
	tokenPattern = regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,}|ghp_[a-zA-Z0-9]{36}|sk-[a-zA-Z0-9]{20,})`)
)

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact masks tokens and shortens email addresses to "a***@host".
func Redact(s string) string {
	s = tokenPattern.ReplaceAllString(s, RedactedValue)
	return emailPattern.ReplaceAllString(s, "$1***@$2")
}

// RedactMap returns a copy of an analytics payload that is safe to log.
func RedactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case IsSensitiveField(k):
			result[k] = RedactedValue
		default:
			result[k] = redactValue(v)
		}
	}
	return result
}

func redactValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return RedactMap(value)
	case string:
		return Redact(value)
	case []string:
		out := make([]string, len(value))
		for i, s := range value {
			out[i] = Redact(s)
		}
		return out
	default:
		return v
	}
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
