package probe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/domain"
)

// ErrUnknownHealthCheck is returned when a target names a definition that
// does not exist.
var ErrUnknownHealthCheck = errors.New("unknown health check")

// Sweeper probes every target of a fleet concurrently, one goroutine per
// target, and returns only after all of them have finished.
type Sweeper struct {
	Logger *zap.Logger
	Prober Prober
}

func NewSweeper(logger *zap.Logger, prober Prober) *Sweeper {
	return &Sweeper{Logger: logger, Prober: prober}
}

// Sweep returns exactly one result per target, in Flatten order. Definitions
// are resolved before any probe starts; a missing one fails the whole sweep.
func (s *Sweeper) Sweep(ctx context.Context, fleet *domain.Fleet) ([]domain.Result, error) {
	targets := Flatten(fleet)

	defs := make([]*domain.HealthCheck, len(targets))
	for i, t := range targets {
		hc, ok := fleet.HealthChecks[t.HealthCheck]
		if !ok || hc == nil {
			return nil, fmt.Errorf("%w: %q referenced by %s/%s/%s",
				ErrUnknownHealthCheck, t.HealthCheck, t.Group, t.SubGroup, t.Name)
		}
		defs[i] = hc
	}

	start := time.Now()
	results := make([]domain.Result, len(targets))
	var wg sync.WaitGroup

	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.probeOne(ctx, targets[i], defs[i])
		}(i)
	}

	wg.Wait()

	s.Logger.Debug("sweep_completed",
		zap.Int("targets", len(targets)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

// probeOne keeps a panicking prober from taking the cycle down with it; the
// target is reported as a transport error instead.
func (s *Sweeper) probeOne(ctx context.Context, t domain.Target, hc *domain.HealthCheck) (res domain.Result) {
	res.Target = t
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("probe_panic",
				zap.String("target", t.Name),
				zap.Any("panic", r),
			)
			res.Outcome = domain.Outcome{
				Kind:   domain.KindTransportError,
				Status: domain.StatusError,
				Detail: fmt.Sprintf("probe panic: %v", r),
				URL:    ResolveURL(t, hc),
			}
		}
	}()
	res.Outcome = s.Prober.Probe(ctx, t, hc)
	return res
}

// Flatten lists all targets with Group and SubGroup filled in. Groups and
// subgroups are sorted by name; targets keep their configured order.
func Flatten(fleet *domain.Fleet) []domain.Target {
	out := make([]domain.Target, 0, fleet.Size())
	for _, g := range sortedKeys(fleet.Groups) {
		subs := fleet.Groups[g]
		for _, sg := range sortedKeys(subs) {
			for _, t := range subs[sg] {
				t.Group = g
				t.SubGroup = sg
				out = append(out, t)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
