package connection

import "time"

// BackoffPolicy controls reconnection after an unexpected drop. Delays grow
// exponentially from BaseDelay by Multiplier up to MaxDelay; after
// MaxAttempts failed attempts the manager enters a terminal errored state.
type BackoffPolicy struct {
	Enabled     bool
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultBackoffPolicy mirrors the service's recommended client settings.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Enabled:     true,
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  1.5,
	}
}

// Delay returns the wait before the given zero-based attempt. Delays are
// non-decreasing up to MaxDelay.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	for i := 0; i < attempt; i++ {
		delay *= multiplier
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}
