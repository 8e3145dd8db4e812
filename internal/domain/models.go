package domain

import (
	"regexp"
	"time"
)

// Proxy is an outbound HTTP proxy for probes.
type Proxy struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port,omitempty" yaml:"port"`
}

// Target is one monitored endpoint inside a group/subgroup.
type Target struct {
	Group       string            `json:"group"`
	SubGroup    string            `json:"sub_group"`
	Name        string            `json:"name"`
	Host        string            `json:"host"`
	Port        int               `json:"port,omitempty"` // 0 = scheme default
	HealthCheck string            `json:"health_check"`
	Headers     map[string]string `json:"headers,omitempty"`
	Proxy       *Proxy            `json:"proxy,omitempty"`
}

// Timeout bounds a single probe. Status is reported when the deadline hits.
type Timeout struct {
	Duration time.Duration `json:"duration"`
	Status   string        `json:"status,omitempty"`
}

// StatusRule maps a response shape to a status name. Every declared pattern
// must match; at least one is declared.
type StatusRule struct {
	Name           string         `json:"name"`
	StatusPattern  *regexp.Regexp `json:"-"`
	ContentPattern *regexp.Regexp `json:"-"`
}

// HealthCheck is a named, shared probe definition.
type HealthCheck struct {
	Name               string            `json:"name"`
	Path               string            `json:"path"`
	Secure             bool              `json:"secure"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify,omitempty"`
	Timeout            *Timeout          `json:"timeout,omitempty"`
	Proxy              *Proxy            `json:"proxy,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"`
	Rules              []StatusRule      `json:"-"`
}

// Fleet is the full group → subgroup → target hierarchy plus the
// definitions its targets reference.
type Fleet struct {
	Groups       map[string]map[string][]Target
	HealthChecks map[string]*HealthCheck
}

// Size returns the number of configured targets.
func (f *Fleet) Size() int {
	n := 0
	for _, g := range f.Groups {
		for _, sg := range g {
			n += len(sg)
		}
	}
	return n
}
