package service

import (
	"time"

	"bitwise74/phone-verify/internal/model"
)

// RateLimiter caps how many versions a phone may accumulate within a
// trailing window. It counts records, not deliveries.
type RateLimiter struct {
	MaxAttempts int
	Window      time.Duration
}

// Allow reports whether another issuance is permitted given the most recent
// records of a phone
func (r RateLimiter) Allow(recent []model.Verification, now time.Time) bool {
	since := now.Add(-r.Window)

	count := 0
	for _, v := range recent {
		if !v.Created.Before(since) {
			count++
		}
	}

	return count < r.MaxAttempts
}
