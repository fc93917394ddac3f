// Package sequence assigns log types to canonical punches using positional
// inference: within each (subject, day) group the first punch is an arrival,
// the last a departure, and interior punches alternate. The untrusted source
// hint is subordinate to this structural rule.
package sequence

import (
	"sort"

	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
)

// Sequencer groups punches by subject and calendar day and assigns a log
// type to every punch. No punch is dropped at this stage.
type Sequencer struct {
	trustSourceHint bool
}

// New creates a Sequencer with configuration options.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// groupKey partitions punches per subject per local calendar day.
type groupKey struct {
	subject string
	day     string
}

// member keeps the original fetch position so identical timestamps keep
// their fetch order through the stable sort.
type member struct {
	punch model.Punch
	order int
}

// Assign pairs every input punch with exactly one log type. Groups are
// emitted in (subject, day) order so the output is deterministic for a
// given input batch. An empty input yields an empty output.
func (s *Sequencer) Assign(punches []model.Punch) []model.SequencedPunch {
	if len(punches) == 0 {
		return nil
	}

	groups := make(map[groupKey][]member)
	keys := make([]groupKey, 0)
	for i, p := range punches {
		k := groupKey{subject: p.SubjectCode, day: p.Day()}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], member{punch: p, order: i})
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].subject != keys[j].subject {
			return keys[i].subject < keys[j].subject
		}
		return keys[i].day < keys[j].day
	})

	out := make([]model.SequencedPunch, 0, len(punches))
	for _, k := range keys {
		group := groups[k]
		// Stable: punches at the identical timestamp keep fetch order.
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].punch.Timestamp.Before(group[j].punch.Timestamp)
		})
		out = append(out, s.assignGroup(group)...)
	}
	return out
}

// assignGroup applies the first/last/alternate rule to one ordered group.
func (s *Sequencer) assignGroup(group []member) []model.SequencedPunch {
	out := make([]model.SequencedPunch, 0, len(group))
	prev := model.LogIn
	for i, m := range group {
		var lt model.LogType
		switch {
		case i == 0:
			// A lone punch is an arrival; a missing departure is a
			// data-completeness issue, not a sequencing error.
			lt = model.LogIn
		case i == len(group)-1:
			lt = model.LogOut
		default:
			lt = prev.Opposite()
			if s.trustSourceHint {
				if hinted, ok := m.punch.SourceHint.LogType(); ok {
					lt = hinted
				}
			}
		}
		prev = lt
		out = append(out, model.SequencedPunch{Punch: m.punch, LogType: lt})
	}
	return out
}

// Structural returns the positional assignment for a group of n punches
// with no hints consulted. It is the reference rule for both live sequencing
// and the log-type rederivation pass over persisted records.
func Structural(n int) []model.LogType {
	if n <= 0 {
		return nil
	}
	types := make([]model.LogType, n)
	types[0] = model.LogIn
	if n == 1 {
		return types
	}
	for i := 1; i < n-1; i++ {
		types[i] = types[i-1].Opposite()
	}
	types[n-1] = model.LogOut
	return types
}
