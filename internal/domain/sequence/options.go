package sequence

// Option applies a configuration option to the Sequencer.
type Option func(*Sequencer)

// WithTrustSourceHint lets a well-formed source hint win over the alternating
// rule for interior punches of a group. The first and last punches of a day
// stay structural regardless. Off by default: device-mode sources frequently
// omit or mis-report direction.
func WithTrustSourceHint(trust bool) Option {
	return func(s *Sequencer) {
		s.trustSourceHint = trust
	}
}
