package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys that describe a request or the node rather than a credential.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"component": {},
	"method":    {},
	"reason":    {},
	"error":     {},
	"remote":    {},
	"requestid": {},
}

// IsAllowlisted reports whether key is emitted without masking.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns key with its value replaced by RedactedValue unless the
// key is allowlisted. Empty values pass through so unset secrets stay visible
// as unset.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
