package agent

import "time"

// Pace scales the base query delay by the recent success rate of an agent:
// half the delay above 0.8, the full delay above 0.5 and double otherwise.
// A negative rate means nothing completed yet and yields the base delay.
func Pace(base time.Duration, rate float64) time.Duration {
	switch {
	case base <= 0:
		return 0
	case rate < 0:
		return base
	case rate > 0.8:
		return base / 2
	case rate > 0.5:
		return base
	default:
		return base * 2
	}
}
