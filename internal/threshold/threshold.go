// Package threshold evaluates alert policies against recorded snapshots.
//
// Each threshold type is built by a Factory from the alert's history and
// its raw configuration. Registries are consulted once, when alerts are
// built; an unknown type is a configuration error, never a cycle error.
package threshold

import (
	"fmt"

	"github.com/hamed0406/healthalert/internal/domain"
	"github.com/hamed0406/healthalert/internal/plugin"
)

// History is the read side of a recorder.
type History interface {
	Latest() (domain.Snapshot, bool)
	All() []domain.Snapshot
}

type Threshold interface {
	CheckValue() (domain.ThresholdResult, error)
}

type Factory func(h History, params map[string]any) (Threshold, error)

type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in types registered.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register(TypeMax, newMax)
	r.Register(TypeSustained, newSustained)
	r.Register(TypeMin, newMin)
	return r
}

func (r *Registry) Register(typ string, f Factory) {
	r.factories[typ] = f
}

// Build constructs a threshold of type typ.
func (r *Registry) Build(typ string, h History, params map[string]any) (Threshold, error) {
	f, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", plugin.ErrUnknownType, typ, plugin.Names(r.factories))
	}
	t, err := f(h, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", typ, err)
	}
	return t, nil
}
