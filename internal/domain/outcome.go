package domain

import "time"

// Well-known status names.
const (
	StatusUnknown = "Unknown"
	StatusError   = "ERROR"
)

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	KindMatched OutcomeKind = iota
	KindUnmatched
	KindTransportError
	KindTimedOut
)

func (k OutcomeKind) String() string {
	switch k {
	case KindMatched:
		return "matched"
	case KindUnmatched:
		return "unmatched"
	case KindTransportError:
		return "transport_error"
	case KindTimedOut:
		return "timed_out"
	default:
		return "invalid"
	}
}

// Outcome is the classified result of one probe.
//
// Fields by kind:
//   - KindMatched: Rule, StatusCode, Criteria
//   - KindUnmatched: StatusCode
//   - KindTransportError: Detail
//   - KindTimedOut: none
//
// Status, URL and Latency are always set.
type Outcome struct {
	Kind       OutcomeKind   `json:"kind"`
	Status     string        `json:"status"`
	Rule       string        `json:"rule,omitempty"`
	StatusCode int           `json:"statusCode,omitempty"`
	Criteria   []string      `json:"criteria,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	URL        string        `json:"url"`
	Latency    time.Duration `json:"latency"`
}

// Result pairs a target with the outcome of its probe in one cycle.
type Result struct {
	Target  Target
	Outcome Outcome
}
