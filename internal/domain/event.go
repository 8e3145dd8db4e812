package domain

import "time"

// LevelInfo is the event level used when no threshold is breached.
const LevelInfo = "info"

// ThresholdResult is one threshold's verdict for a cycle.
type ThresholdResult struct {
	Type     string         `json:"type"`
	Breached bool           `json:"breached"`
	Level    string         `json:"level,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	Err      string         `json:"error,omitempty"`
}

// EventInfo is the payload of an alert event.
type EventInfo struct {
	Site             string            `json:"site,omitempty"`
	ServerSets       StatusTree        `json:"serverSets"`
	ServerSetCounts  CountTree         `json:"serverSetCounts"`
	Thresholds       []ThresholdResult `json:"thresholds"`
	MatchedThreshold *ThresholdResult  `json:"matchedThreshold,omitempty"`
	Extra            map[string]any    `json:"extra,omitempty"`
}

// Event is built once per cycle and handed to notifiers.
type Event struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Raised time.Time `json:"raised"`
	Level  string    `json:"level"`
	Info   EventInfo `json:"info"`
}

// WithExtra returns a copy of e with key set in Info.Extra. The receiver's
// map is never written to.
func (e Event) WithExtra(key string, value any) Event {
	extra := make(map[string]any, len(e.Info.Extra)+1)
	for k, v := range e.Info.Extra {
		extra[k] = v
	}
	extra[key] = value
	e.Info.Extra = extra
	return e
}
