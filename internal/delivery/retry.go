package delivery

import (
	"math"
	"math/rand/v2"
	"time"
)

// Config defines the tracker's retry and timeout behavior.
type Config struct {
	MaxRetries     int           // bounces beyond this become permanent failures
	Timeout        time.Duration // no callback within this window after Sent => bounced
	ScanInterval   time.Duration // timeout scanner cadence
	InitialBackoff time.Duration // backoff before the first retry
	MaxBackoff     time.Duration // cap on the backoff growth
	BackoffFactor  float64       // multiplier per retry attempt
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		Timeout:        5 * time.Minute,
		ScanInterval:   30 * time.Second,
		InitialBackoff: 10 * time.Second,
		MaxBackoff:     5 * time.Minute,
		BackoffFactor:  2.0,
	}
}

// backoff returns the wait before retry number attempt (zero-based),
// growing exponentially with jitter so bounced notifications from one
// outage do not retry in lockstep.
func (c Config) backoff(attempt int) time.Duration {
	factor := c.BackoffFactor
	if factor <= 1 {
		factor = 2.0
	}
	d := float64(c.InitialBackoff) * math.Pow(factor, float64(attempt))
	if limit := float64(c.MaxBackoff); c.MaxBackoff > 0 && d > limit {
		d = limit
	}
	// +-25% jitter
	d += d * 0.25 * (rand.Float64()*2 - 1)
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
