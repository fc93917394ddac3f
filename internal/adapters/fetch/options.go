package fetch

import "time"

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithMaxPast sets how far in the past a punch may lie before it is
// dropped. Zero disables the check.
func WithMaxPast(d time.Duration) Option {
	return func(n *Normalizer) {
		if d >= 0 {
			n.maxPast = d
		}
	}
}

// WithFutureSkew sets the tolerated clock skew for punches ahead of now.
func WithFutureSkew(d time.Duration) Option {
	return func(n *Normalizer) {
		if d >= 0 {
			n.futureSkew = d
		}
	}
}

// WithClock replaces the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}
