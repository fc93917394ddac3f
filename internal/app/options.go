package app

import (
	"time"

	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/fetch"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/sequence"
	"github.com/iahsanshah/ZK-machine-Integration/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSequencer replaces the default sequencer, e.g. one trusting source
// hints for interior punches.
func WithSequencer(seq *sequence.Sequencer) Option {
	return func(s *Service) {
		if seq != nil {
			s.sequencer = seq
		}
	}
}

// WithNormalizer replaces the default payload normalizer.
func WithNormalizer(n *fetch.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithLookback sets the fetch window length used before a scope has a
// persisted watermark.
func WithLookback(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookback = d
		}
	}
}

// WithClock replaces the time source. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
