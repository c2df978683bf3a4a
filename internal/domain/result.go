package domain

import (
	"fmt"
	"time"
)

// RateLimitScope classifies a provider throttling rejection.
type RateLimitScope string

const (
	// ScopeGlobal means the whole application is throttled.
	ScopeGlobal RateLimitScope = "global"
	// ScopeShared means the resource (channel/webhook) is shared with other clients.
	ScopeShared RateLimitScope = "shared"
	// ScopeUser means this endpoint is being called too fast by us.
	ScopeUser RateLimitScope = "user"
)

// ParseScope maps a provider scope string to a RateLimitScope.
// Unknown or empty values are treated as ScopeUser.
func ParseScope(s string) RateLimitScope {
	switch RateLimitScope(s) {
	case ScopeGlobal:
		return ScopeGlobal
	case ScopeShared:
		return ScopeShared
	default:
		return ScopeUser
	}
}

// Outcome tags a SendResult.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeTransportError
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// SendResult is the tagged result of a single transport dispatch.
type SendResult struct {
	Outcome Outcome

	// Scope and RetryAfter are set for OutcomeRateLimited.
	Scope      RateLimitScope
	RetryAfter time.Duration

	// Err is set for OutcomeTransportError. Permanent marks rejections that
	// will fail again if retried unchanged (malformed payload, dead webhook).
	Err       error
	Permanent bool
}

// Success returns a successful SendResult.
func Success() SendResult {
	return SendResult{Outcome: OutcomeSuccess}
}

// RateLimited returns a throttled SendResult.
func RateLimited(scope RateLimitScope, retryAfter time.Duration) SendResult {
	return SendResult{Outcome: OutcomeRateLimited, Scope: scope, RetryAfter: retryAfter}
}

// TransportError returns a failed SendResult.
func TransportError(err error, permanent bool) SendResult {
	return SendResult{Outcome: OutcomeTransportError, Err: err, Permanent: permanent}
}

// String describes the result for logs.
func (r SendResult) String() string {
	switch r.Outcome {
	case OutcomeRateLimited:
		return fmt.Sprintf("rate_limited(%s, %s)", r.Scope, r.RetryAfter)
	case OutcomeTransportError:
		return fmt.Sprintf("transport_error(%v, permanent=%t)", r.Err, r.Permanent)
	default:
		return r.Outcome.String()
	}
}
