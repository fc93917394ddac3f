package fetch

import (
	"strconv"
	"strings"

	"github.com/iahsanshah/ZK-machine-Integration/internal/adapters/transport"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
)

// Direction encodings seen in the wild, checked in priority order:
// an explicit label field, a numeric punch-state code, then a textual
// display label. OUT indicators are matched before IN ones because every
// "CHECK OUT" variant would otherwise never be reached.
var (
	labelFields   = []string{"log_type", "type", "direction", "status"}
	numericFields = []string{"punch_state", "punch", "punchtype"}
	displayFields = []string{"punch_state_display", "verify_type_display"}

	outIndicators = []string{"out", "check out", "checkout", "chk out", "exit", "outgoing"}
	inIndicators  = []string{"in", "check in", "checkin", "chk in", "entry"}
)

// extractHint pulls an untrusted direction signal from a raw payload.
// Absence yields HintNone, which is a valid state.
func extractHint(raw transport.RawPunch) model.Hint {
	for _, f := range labelFields {
		if h, ok := labelHint(raw[f]); ok {
			return h
		}
	}
	for _, f := range numericFields {
		if h, ok := numericHint(raw[f]); ok {
			return h
		}
	}
	for _, f := range displayFields {
		if h, ok := displayHint(raw[f]); ok {
			return h
		}
	}
	return model.HintNone
}

// labelHint matches exact IN/OUT labels only.
func labelHint(v any) (model.Hint, bool) {
	s, ok := v.(string)
	if !ok {
		return model.HintNone, false
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return model.HintIn, true
	case "OUT":
		return model.HintOut, true
	default:
		return model.HintNone, false
	}
}

// numericHint maps the 0=IN / 1=OUT punch-state convention. Numbers may
// arrive as JSON floats or as strings.
func numericHint(v any) (model.Hint, bool) {
	var code int
	switch t := v.(type) {
	case float64:
		code = int(t)
	case int:
		code = t
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return model.HintNone, false
		}
		code = n
	default:
		return model.HintNone, false
	}
	switch code {
	case 0:
		return model.HintIn, true
	case 1:
		return model.HintOut, true
	default:
		return model.HintNone, false
	}
}

// displayHint scans free-form display labels for direction indicators.
func displayHint(v any) (model.Hint, bool) {
	s, ok := v.(string)
	if !ok {
		return model.HintNone, false
	}
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return model.HintNone, false
	}
	for _, indicator := range outIndicators {
		if strings.Contains(normalized, indicator) {
			return model.HintOut, true
		}
	}
	for _, indicator := range inIndicators {
		if strings.Contains(normalized, indicator) {
			return model.HintIn, true
		}
	}
	return model.HintNone, false
}
