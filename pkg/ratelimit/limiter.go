// Package ratelimit enforces minimum spacing and a sliding one-minute window
// over the call timestamps stored on a ledger.
package ratelimit

import (
	"time"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/policy"
)

// Window is the sliding window length.
const Window = time.Minute

// Limiter holds the thresholds. The zero value allows everything.
type Limiter struct {
	MinSpacing   time.Duration
	MaxPerMinute int
}

// FromPolicy builds a Limiter from the policy's rate limit settings.
func FromPolicy(p *policy.Policy) Limiter {
	return Limiter{
		MinSpacing:   time.Duration(p.RateLimit.MinSecondsBetweenCalls) * time.Second,
		MaxPerMinute: p.RateLimit.MaxCallsPerMinute,
	}
}

// Allow prunes timestamps older than the window and reports whether a call at
// now is permitted. When it is not, retryAfter is the earliest wait that
// would let it through.
func (r Limiter) Allow(l *ledger.Ledger, now time.Time) (ok bool, retryAfter time.Duration) {
	Prune(l, now)

	if r.MinSpacing > 0 && !l.LastCallAt.IsZero() {
		if since := now.Sub(l.LastCallAt); since < r.MinSpacing {
			return false, r.MinSpacing - since
		}
	}
	if r.MaxPerMinute > 0 && len(l.RecentCalls) >= r.MaxPerMinute {
		return false, Window - now.Sub(l.RecentCalls[0])
	}
	return true, 0
}

// Note records an admitted call at now.
func (r Limiter) Note(l *ledger.Ledger, now time.Time) {
	l.LastCallAt = now
	l.RecentCalls = append(l.RecentCalls, now)
}

// Prune drops timestamps at least one window old. RecentCalls stays sorted.
func Prune(l *ledger.Ledger, now time.Time) {
	i := 0
	for i < len(l.RecentCalls) && now.Sub(l.RecentCalls[i]) >= Window {
		i++
	}
	if i > 0 {
		l.RecentCalls = append(l.RecentCalls[:0], l.RecentCalls[i:]...)
	}
}
