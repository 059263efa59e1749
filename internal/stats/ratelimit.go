package stats

import "time"

// Level is the ratelimit tier swapRateLimitState returns.
type Level int

const (
	LevelNone Level = iota
	LevelSlow
	LevelStop
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelSlow:
		return "slow"
	case LevelStop:
		return "stop"
	default:
		return "?"
	}
}

const (
	delaySlowMs = 1
	delayStopMs = 10
)

// RateLimiter reproduces swapRateLimitState/swapRateLimit: a three-tier
// policy over the in-flight swap memory gauge, introducing an increasing
// delay as usage crosses a slowdown then a stop threshold.
type RateLimiter struct {
	slowdown int64
	stop     int64

	// inFlight reports the current in-flight byte count; normally backed
	// by swaprequest.MemoryGauge.InFlight, injected as a func so this
	// package doesn't need to import swaprequest.
	inFlight func() int64
}

// NewRateLimiter builds a limiter against the given thresholds (bytes) and
// an in-flight memory accessor.
func NewRateLimiter(slowdown, stop int64, inFlight func() int64) *RateLimiter {
	return &RateLimiter{slowdown: slowdown, stop: stop, inFlight: inFlight}
}

// State reports the current tier, mirroring swapRateLimitState.
func (r *RateLimiter) State() Level {
	if r.inFlight == nil {
		return LevelNone
	}
	cur := r.inFlight()
	switch {
	case cur < r.slowdown:
		return LevelNone
	case cur < r.stop:
		return LevelSlow
	default:
		return LevelStop
	}
}

// Delay reports how long the caller should pause before admitting the
// next command, scaling linearly between delaySlowMs and delayStopMs
// across the slowdown..stop range, mirroring swapRateLimit's pct
// computation.
func (r *RateLimiter) Delay() time.Duration {
	switch r.State() {
	case LevelNone:
		return 0
	case LevelStop:
		return time.Duration(delayStopMs) * time.Millisecond
	default:
		cur := r.inFlight()
		span := r.stop - r.slowdown
		if span <= 0 {
			return time.Duration(delaySlowMs) * time.Millisecond
		}
		pct := float64(cur-r.slowdown) / float64(span)
		ms := float64(delaySlowMs) + pct*float64(delayStopMs-delaySlowMs)
		return time.Duration(ms * float64(time.Millisecond))
	}
}
