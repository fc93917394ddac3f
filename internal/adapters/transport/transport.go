// Package transport defines the contract for retrieving raw punch payloads
// from a ZKTeco device or its hosted API, and provides the HTTP API client.
//
// The core pipeline owns no wire format; every protocol shape lives here.
package transport

import (
	"context"
	"errors"
	"time"
)

// Sentinel kinds for transport errors. Both abort the current sync cycle
// with zero writer side effects.
var (
	ErrUnreachable      = errors.New("transport unreachable")
	ErrMalformedPayload = errors.New("malformed transport payload")
)

// RawPunch is one raw transaction payload exactly as the source returned it.
// Field names vary across firmware versions; normalization happens in the
// fetch package.
type RawPunch map[string]any

// Window bounds a fetch by punch time, inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// Transport yields raw punch payloads for a time window.
// A timeout is treated identically to any other transport failure.
type Transport interface {
	Fetch(ctx context.Context, w Window) ([]RawPunch, error)
}
