package app

import (
	"time"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

// RateLimitState tracks provider throttling per scope and the deadline before
// which the worker must not dispatch.
type RateLimitState struct {
	global int
	shared int
	user   int

	until time.Time
}

// Record counts a rejection and extends the backoff deadline to at least
// now+retryAfter. It returns the resulting deadline.
func (s *RateLimitState) Record(scope domain.RateLimitScope, retryAfter time.Duration, now time.Time) time.Time {
	switch scope {
	case domain.ScopeGlobal:
		s.global++
	case domain.ScopeShared:
		s.shared++
	default:
		s.user++
	}

	if d := now.Add(retryAfter); d.After(s.until) {
		s.until = d
	}
	return s.until
}

// Until returns the backoff deadline. The zero time means none was ever set.
func (s *RateLimitState) Until() time.Time {
	return s.until
}

// Count returns the number of rejections recorded for scope.
func (s *RateLimitState) Count(scope domain.RateLimitScope) int {
	switch scope {
	case domain.ScopeGlobal:
		return s.global
	case domain.ScopeShared:
		return s.shared
	default:
		return s.user
	}
}
