// Package domain contains admission control value types.
package domain

// BlacklistRetryAfter is the Retry-After, in seconds, sent to blacklisted
// callers.
const BlacklistRetryAfter = 60

// Caller identifies an inbound request.
type Caller struct {
	IP     string
	APIKey string
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed     bool
	Blacklisted bool
	RetryAfter  int // seconds, set when rejected
}

// Allow is the decision for an admitted caller.
func Allow() Decision {
	return Decision{Allowed: true}
}

// RejectBlacklisted rejects a blacklisted caller.
func RejectBlacklisted() Decision {
	return Decision{Blacklisted: true, RetryAfter: BlacklistRetryAfter}
}

// RejectRateLimited rejects a caller over quota.
func RejectRateLimited(retryAfter int) Decision {
	return Decision{RetryAfter: retryAfter}
}

// Reason is a short label for metrics and logs.
func (d Decision) Reason() string {
	switch {
	case d.Allowed:
		return "allowed"
	case d.Blacklisted:
		return "blacklisted"
	default:
		return "rate_limited"
	}
}
