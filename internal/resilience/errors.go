// Package resilience wraps fallible provider calls with a retry policy
// tuned for shared-quota AI APIs.
package resilience

import "strings"

// IsRateLimited reports whether the error looks like a rate-limit rejection.
// Provider SDKs and raw HTTP clients surface these inconsistently, so the
// check inspects the message for an HTTP 429 marker or a "rate limit"
// substring, case-insensitively.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}
