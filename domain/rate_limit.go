package domain

import "time"

// RateDecision tells whether an origin may submit now.
// RetryAfter is zero when Allowed is true.
type RateDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}
