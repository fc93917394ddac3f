// Package model contains domain models passed between pipeline stages.
package model

import (
	"errors"
	"time"
)

// LogType classifies the direction of a punch.
type LogType string

const (
	LogIn  LogType = "IN"
	LogOut LogType = "OUT"
)

// Opposite returns the other direction.
func (t LogType) Opposite() LogType {
	if t == LogIn {
		return LogOut
	}
	return LogIn
}

// Hint is an untrusted direction signal extracted from a raw payload.
// Devices frequently omit or mis-report it, so it never drives the
// structural assignment unless explicitly enabled.
type Hint int

const (
	HintNone Hint = iota
	HintIn
	HintOut
)

// LogType converts a well-formed hint to a log type.
// ok is false for HintNone.
func (h Hint) LogType() (LogType, bool) {
	switch h {
	case HintIn:
		return LogIn, true
	case HintOut:
		return LogOut, true
	default:
		return "", false
	}
}

// ErrMalformedPunch marks a punch missing its subject code or timestamp.
// Such punches are dropped before sequencing; the cycle continues.
var ErrMalformedPunch = errors.New("malformed punch")

// Punch is the canonical punch record flowing through the pipeline.
type Punch struct {
	SubjectCode string    // device-side person identifier, not yet resolved
	Timestamp   time.Time // punch time, second precision
	SourceHint  Hint      // untrusted direction signal, may be HintNone
	DeviceID    string    // device/connection that produced the punch
	RawID       string    // opaque source-side id, audit only
}

// Validate reports ErrMalformedPunch when a required field is absent.
func (p Punch) Validate() error {
	if p.SubjectCode == "" || p.Timestamp.IsZero() {
		return ErrMalformedPunch
	}
	return nil
}

// Day returns the local calendar date the punch falls on. The day boundary
// uses the timestamp's own location.
func (p Punch) Day() string {
	return p.Timestamp.Format("2006-01-02")
}

// SequencedPunch is a Punch paired with its assigned log type. The log type
// is assigned exactly once by the sequencer and never derived again
// downstream.
type SequencedPunch struct {
	Punch
	LogType LogType
}
