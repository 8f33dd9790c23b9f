package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/websec-go/pkg/token"
)

// Keys whose values are never logged, not even partially.
var secretKeyPatterns = []string{
	"password",
	"passwd",
	"secret",
	"pepper",
	"salt",
	"hash",
	"credential",
	"cookie",
	"authorization",
}

// Keys whose values are masked down to a short prefix and suffix so that
// two log lines can still be correlated.
var maskedKeyPatterns = []string{
	"token",
	"fingerprint",
	"csrf",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	key := strings.ToLower(a.Key)
	switch {
	case containsAny(key, secretKeyPatterns):
		if isEmpty(a.Value) {
			return a
		}
		return slog.String(a.Key, redactedValue)
	case containsAny(key, maskedKeyPatterns):
		switch a.Value.Kind() {
		case slog.KindString:
			if v := a.Value.String(); v != "" {
				return slog.String(a.Key, token.Mask(v))
			}
		case slog.KindAny:
			if b, ok := a.Value.Any().([]byte); ok && len(b) > 0 {
				return slog.String(a.Key, redactedValue)
			}
		}
	}
	return a
}

func isEmpty(v slog.Value) bool {
	switch v.Kind() {
	case slog.KindString:
		return v.String() == ""
	case slog.KindAny:
		if b, ok := v.Any().([]byte); ok {
			return len(b) == 0
		}
		return v.Any() == nil
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// IsSensitiveKey reports whether a value logged under key would be
// redacted or masked.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	return containsAny(key, secretKeyPatterns) || containsAny(key, maskedKeyPatterns)
}
