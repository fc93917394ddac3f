// Package fetch normalizes heterogeneous raw punch payloads into canonical
// punches. Field names, timestamp formats and direction encodings vary
// across ZKTeco firmware versions; everything canonical the pipeline relies
// on is produced here.
package fetch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/transport"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
)

// Default sanity window constants. Punches outside the window are dropped:
// device clocks drift, and decades-old backlogged records must not create
// check-ins.
const (
	defaultMaxPast    = 90 * 24 * time.Hour
	defaultFutureSkew = 5 * time.Minute
)

// Raw payload field aliases, in lookup priority order.
var (
	subjectFields   = []string{"emp_code", "employee_code", "employee_no"}
	timestampFields = []string{
		"punch_time", "punchTime", "punchtime", "time",
		"timestamp", "checktime", "record_time",
	}
	rawIDFields = []string{"id", "transaction_id", "uid"}

	timestampLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"02-01-2006 15:04:05",
		"02/01/2006 15:04:05",
		"20060102150405",
		"2006-01-02",
	}
)

// Normalizer turns raw transport payloads into canonical punches.
type Normalizer struct {
	maxPast    time.Duration
	futureSkew time.Duration
	now        func() time.Time
}

// New creates a Normalizer with configuration options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		maxPast:    defaultMaxPast,
		futureSkew: defaultFutureSkew,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps each raw payload to a canonical punch. Payloads missing a
// subject code or a parsable timestamp, and punches outside the sanity
// window, are dropped and counted; absence of a direction hint is a valid
// state, never an error.
func (n *Normalizer) Normalize(raws []transport.RawPunch, deviceID string) (punches []model.Punch, dropped int) {
	punches = make([]model.Punch, 0, len(raws))
	now := n.now()
	for _, raw := range raws {
		p, ok := n.one(raw, deviceID, now)
		if !ok {
			dropped++
			continue
		}
		punches = append(punches, p)
	}
	return punches, dropped
}

func (n *Normalizer) one(raw transport.RawPunch, deviceID string, now time.Time) (model.Punch, bool) {
	p := model.Punch{
		SubjectCode: firstString(raw, subjectFields),
		SourceHint:  extractHint(raw),
		DeviceID:    deviceID,
		RawID:       firstString(raw, rawIDFields),
	}

	ts, ok := extractTimestamp(raw)
	if !ok {
		return model.Punch{}, false
	}
	p.Timestamp = ts.Truncate(time.Second)

	if err := p.Validate(); err != nil {
		return model.Punch{}, false
	}
	if p.Timestamp.After(now.Add(n.futureSkew)) {
		return model.Punch{}, false
	}
	if n.maxPast > 0 && p.Timestamp.Before(now.Add(-n.maxPast)) {
		return model.Punch{}, false
	}
	return p, true
}

// firstString returns the first present, non-empty alias rendered as string.
func firstString(raw transport.RawPunch, fields []string) string {
	for _, f := range fields {
		v, ok := raw[f]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64:
			// JSON numbers decode to float64; ids and codes are integral.
			s = strconv.FormatInt(int64(t), 10)
		default:
			s = strings.TrimSpace(fmt.Sprint(t))
		}
		if s != "" {
			return s
		}
	}
	return ""
}

func extractTimestamp(raw transport.RawPunch) (time.Time, bool) {
	for _, f := range timestampFields {
		v, ok := raw[f]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			for _, layout := range timestampLayouts {
				if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
					return ts, true
				}
			}
		case float64:
			// Unix seconds, or milliseconds when implausibly large.
			secs := t
			if secs > 1e12 {
				secs = secs / 1000
			}
			if secs > 0 {
				whole, frac := math.Modf(secs)
				return time.Unix(int64(whole), int64(frac*float64(time.Second))), true
			}
		}
	}
	return time.Time{}, false
}
