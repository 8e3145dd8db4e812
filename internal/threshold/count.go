package threshold

import (
	"errors"

	"github.com/hamed0406/healthalert/internal/domain"
	"github.com/hamed0406/healthalert/internal/plugin"
)

const (
	TypeMax       = "maxHealthCheckValue"
	TypeSustained = "sustainedHealthCheckValue"
	TypeMin       = "minHealthCheckValue"
)

// countParams is shared by all count-based thresholds. Group and SubGroup
// narrow the count; empty means every group or subgroup.
type countParams struct {
	Status     string `mapstructure:"status"`
	Limit      int    `mapstructure:"limit"`
	Level      string `mapstructure:"level"`
	Group      string `mapstructure:"group"`
	SubGroup   string `mapstructure:"subGroup"`
	Recordings int    `mapstructure:"recordings"`
}

func (p countParams) validate() error {
	switch {
	case p.Status == "":
		return errors.New("status is required")
	case p.Level == "":
		return errors.New("level is required")
	case p.Limit < 1:
		return errors.New("limit must be at least 1")
	}
	return nil
}

func (p countParams) count(s domain.Snapshot) int {
	return s.Count(p.Status, p.Group, p.SubGroup)
}

func (p countParams) result(typ string, breached bool, count int) domain.ThresholdResult {
	detail := map[string]any{
		"status": p.Status,
		"limit":  p.Limit,
		"count":  count,
	}
	if p.Group != "" {
		detail["group"] = p.Group
	}
	if p.SubGroup != "" {
		detail["subGroup"] = p.SubGroup
	}
	return domain.ThresholdResult{Type: typ, Breached: breached, Level: p.Level, Detail: detail}
}

func decodeCount(params map[string]any) (countParams, error) {
	var p countParams
	if err := plugin.Decode(params, &p); err != nil {
		return p, err
	}
	return p, p.validate()
}

// Max fires when the latest snapshot has at least Limit targets in Status.
type Max struct {
	h History
	p countParams
}

func newMax(h History, params map[string]any) (Threshold, error) {
	p, err := decodeCount(params)
	if err != nil {
		return nil, err
	}
	if p.Recordings != 0 {
		return nil, errors.New("recordings is only valid for " + TypeSustained)
	}
	return &Max{h: h, p: p}, nil
}

func (m *Max) CheckValue() (domain.ThresholdResult, error) {
	s, ok := m.h.Latest()
	if !ok {
		return m.p.result(TypeMax, false, 0), nil
	}
	n := m.p.count(s)
	return m.p.result(TypeMax, n >= m.p.Limit, n), nil
}

// Min fires when the latest snapshot has fewer than Limit targets in Status.
type Min struct {
	h History
	p countParams
}

func newMin(h History, params map[string]any) (Threshold, error) {
	p, err := decodeCount(params)
	if err != nil {
		return nil, err
	}
	if p.Recordings != 0 {
		return nil, errors.New("recordings is only valid for " + TypeSustained)
	}
	return &Min{h: h, p: p}, nil
}

func (m *Min) CheckValue() (domain.ThresholdResult, error) {
	s, ok := m.h.Latest()
	if !ok {
		return m.p.result(TypeMin, false, 0), nil
	}
	n := m.p.count(s)
	return m.p.result(TypeMin, n < m.p.Limit, n), nil
}

// Sustained fires when each of the last Recordings snapshots has at least
// Limit targets in Status. It stays quiet until that many snapshots exist,
// so Recordings should not exceed the alert's maxRecordings.
type Sustained struct {
	h History
	p countParams
}

func newSustained(h History, params map[string]any) (Threshold, error) {
	p, err := decodeCount(params)
	if err != nil {
		return nil, err
	}
	if p.Recordings < 1 {
		return nil, errors.New("recordings must be at least 1")
	}
	return &Sustained{h: h, p: p}, nil
}

func (s *Sustained) CheckValue() (domain.ThresholdResult, error) {
	all := s.h.All()
	if len(all) < s.p.Recordings {
		res := s.p.result(TypeSustained, false, 0)
		res.Detail["recordings"] = len(all)
		return res, nil
	}

	window := all[len(all)-s.p.Recordings:]
	breached := true
	for _, snap := range window {
		if s.p.count(snap) < s.p.Limit {
			breached = false
			break
		}
	}
	res := s.p.result(TypeSustained, breached, s.p.count(window[len(window)-1]))
	res.Detail["recordings"] = s.p.Recordings
	return res, nil
}

// Recordings reports how much history the threshold needs.
func (s *Sustained) Recordings() int { return s.p.Recordings }
