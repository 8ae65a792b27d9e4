package app

import "time"

// Backoff maps an attempt number to the delay inserted before the next
// attempt: min(base * 2^attempt, cap). Shared by metadata resolution and item
// download retries.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// DefaultBackoff matches the engine defaults (2s doubling, capped at 30s)
var DefaultBackoff = Backoff{Base: 2 * time.Second, Cap: 30 * time.Second}

// Delay returns the delay for the given zero-based attempt number
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.Cap {
			return b.Cap
		}
	}
	if d > b.Cap {
		return b.Cap
	}
	return d
}
