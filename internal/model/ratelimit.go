package model

import "time"

// RateLimitEntry tracks the failed-attempt history for one hashed identifier.
// Count resets with the window; EscalationCount deliberately survives window
// resets so sustained abuse is still visible after each reset.
type RateLimitEntry struct {
	Count           int       `json:"count"`
	FirstAttempt    time.Time `json:"firstAttempt"`
	LastAttempt     time.Time `json:"lastAttempt"`
	EscalationCount int       `json:"escalationCount,omitempty"`
}

// WindowExpired reports whether the standard window has elapsed since the
// first recorded attempt
func (e *RateLimitEntry) WindowExpired(window time.Duration, now time.Time) bool {
	return now.Sub(e.FirstAttempt) > window
}
