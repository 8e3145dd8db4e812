// Package eventbuilder decorates alert events before they are emitted.
// Builders run in configured order, each on the previous builder's output.
package eventbuilder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hamed0406/healthalert/internal/domain"
	"github.com/hamed0406/healthalert/internal/plugin"
)

const (
	TypeStatic  = "static"
	TypeSummary = "summary"
)

// Builder returns a modified copy of ev. It must not write to maps shared
// with its input; domain.Event.WithExtra handles that.
type Builder interface {
	Build(ctx context.Context, ev domain.Event) (domain.Event, error)
}

type Factory func(params map[string]any) (Builder, error)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register(TypeStatic, newStatic)
	r.Register(TypeSummary, newSummary)
	return r
}

func (r *Registry) Register(typ string, f Factory) {
	r.factories[typ] = f
}

func (r *Registry) Build(typ string, params map[string]any) (Builder, error) {
	f, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", plugin.ErrUnknownType, typ, plugin.Names(r.factories))
	}
	b, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", typ, err)
	}
	return b, nil
}

// Static merges fixed values into Info.Extra.
type Static struct {
	Values map[string]any `mapstructure:"values"`
}

func newStatic(params map[string]any) (Builder, error) {
	var s Static
	if err := plugin.Decode(params, &s); err != nil {
		return nil, err
	}
	if len(s.Values) == 0 {
		return nil, errors.New("values is required")
	}
	return &s, nil
}

func (s *Static) Build(_ context.Context, ev domain.Event) (domain.Event, error) {
	for _, k := range plugin.Names(s.Values) {
		ev = ev.WithExtra(k, s.Values[k])
	}
	return ev, nil
}

// Summary renders the counts tree as one line per subgroup, e.g.
// "team/category: ERROR=1 OK=3".
type Summary struct {
	Key string `mapstructure:"key"`
}

func newSummary(params map[string]any) (Builder, error) {
	s := Summary{Key: "summary"}
	if err := plugin.Decode(params, &s); err != nil {
		return nil, err
	}
	if s.Key == "" {
		return nil, errors.New("key must not be empty")
	}
	return &s, nil
}

func (s *Summary) Build(_ context.Context, ev domain.Event) (domain.Event, error) {
	return ev.WithExtra(s.Key, Summarize(ev.Info.ServerSetCounts)), nil
}

// Summarize formats counts deterministically: groups, subgroups and
// statuses are sorted by name.
func Summarize(counts domain.CountTree) string {
	var lines []string
	for _, g := range plugin.Names(counts) {
		for _, sg := range plugin.Names(counts[g]) {
			byStatus := counts[g][sg]
			statuses := plugin.Names(byStatus)
			parts := make([]string, 0, len(statuses))
			for _, st := range statuses {
				parts = append(parts, fmt.Sprintf("%s=%d", st, byStatus[st]))
			}
			lines = append(lines, fmt.Sprintf("%s/%s: %s", g, sg, strings.Join(parts, " ")))
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
