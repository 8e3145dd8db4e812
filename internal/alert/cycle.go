package alert

import (
	"time"

	"github.com/hamed0406/healthalert/internal/domain"
)

type State int

const (
	StateIdle State = iota
	StateProbing
	StateAggregating
	StateEvaluating
	StateEmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateAggregating:
		return "aggregating"
	case StateEvaluating:
		return "evaluating"
	case StateEmitting:
		return "emitting"
	default:
		return "unknown"
	}
}

// cycle is the state of one Check call. A fresh value is created per run
// and discarded afterwards.
type cycle struct {
	id      string
	started time.Time
	state   State

	results    []domain.Result
	snapshot   domain.Snapshot
	thresholds []domain.ThresholdResult
	matched    *domain.ThresholdResult
	event      *domain.Event
	err        error
}

func (c *cycle) enter(s State) { c.state = s }
