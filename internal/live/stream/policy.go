package stream

import "time"

// Policy is the reconnect/backoff configuration: a pure input to the
// connection state machine, independent of any transport.
type Policy struct {
	// MaxAttempts bounds automatic reconnects after a failure. Once
	// exhausted the connection settles into disconnected and the owner
	// must dial again.
	MaxAttempts int

	// BaseInterval is the delay unit between reconnect attempts.
	BaseInterval time.Duration

	// MultiplierCap plateaus the delay growth: attempt n waits
	// BaseInterval * min(n, MultiplierCap).
	MultiplierCap int
}

// DefaultPolicy yields delays of 3s, 6s, 9s, 9s, 9s across at most five
// attempts. The plateau (rather than exponential growth) is deliberate.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   5,
		BaseInterval:  3 * time.Second,
		MultiplierCap: 3,
	}
}

// Delay returns the wait before reconnect attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > p.MultiplierCap {
		attempt = p.MultiplierCap
	}
	return p.BaseInterval * time.Duration(attempt)
}

// Exhausted reports whether no further automatic attempts remain after
// attempt reconnects have already been made.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
