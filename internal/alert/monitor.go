// Package alert runs one alert's cycle: probe the fleet, record the
// aggregate, evaluate thresholds, build the event, emit it, and ask the
// scheduler for the next run.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/aggregate"
	"github.com/hamed0406/healthalert/internal/domain"
	"github.com/hamed0406/healthalert/internal/eventbuilder"
	"github.com/hamed0406/healthalert/internal/metrics"
	"github.com/hamed0406/healthalert/internal/plugin"
	"github.com/hamed0406/healthalert/internal/scheduler"
	"github.com/hamed0406/healthalert/internal/threshold"
)

type Sweeper interface {
	Sweep(ctx context.Context, fleet *domain.Fleet) ([]domain.Result, error)
}

type Recorder interface {
	Record(domain.Snapshot) error
	threshold.History
}

type Emitter interface {
	Emit(ctx context.Context, eventName string, ev domain.Event) error
}

type NamedThreshold struct {
	Type      string
	Threshold threshold.Threshold
}

type NamedBuilder struct {
	Type    string
	Builder eventbuilder.Builder
}

// Monitor owns one alert. All per-run state lives in a cycle value; the
// Monitor itself only keeps the last emitted event for readers.
type Monitor struct {
	Name      string
	Site      string
	EventName string

	Logger     *zap.Logger
	Fleet      *domain.Fleet
	Sweeper    Sweeper
	Recorder   Recorder
	Thresholds []NamedThreshold
	Builders   []NamedBuilder
	Emitter    Emitter
	Scheduler  scheduler.Scheduler
	Metrics    metrics.Recorder

	now func() time.Time

	mu     sync.RWMutex
	last   *domain.Event
	cycles int64
}

// Run starts the scheduler with Check as its task.
func (m *Monitor) Run(ctx context.Context) {
	m.Scheduler.Start(ctx, m.Check)
}

// Stop halts scheduling. A cycle in progress completes.
func (m *Monitor) Stop() {
	m.Scheduler.Stop()
}

// Check runs one cycle. It never fails: every problem is logged, and the
// scheduler is always asked for the next run, even after a panic.
func (m *Monitor) Check(ctx context.Context) {
	c := &cycle{id: uuid.NewString(), started: m.clock()}
	defer m.finish(ctx, c)

	c.enter(StateProbing)
	results, err := m.Sweeper.Sweep(ctx, m.Fleet)
	if err != nil {
		c.err = err
		m.Logger.Error("sweep_failed", zap.String("alert", m.Name), zap.Error(err))
		return
	}
	c.results = results

	c.enter(StateAggregating)
	c.snapshot = aggregate.Fold(results)
	if err := m.record(c.snapshot); err != nil {
		m.Logger.Warn("record_failed", zap.String("alert", m.Name), zap.Error(err))
	}

	c.enter(StateEvaluating)
	c.thresholds, c.matched = m.evaluate()

	c.enter(StateEmitting)
	ev := m.build(ctx, c)
	c.event = &ev
	if err := m.Emitter.Emit(ctx, m.EventName, ev); err != nil {
		m.Logger.Warn("emit_failed", zap.String("alert", m.Name), zap.Error(err))
	}

	m.mu.Lock()
	m.last = &ev
	m.mu.Unlock()
}

func (m *Monitor) finish(ctx context.Context, c *cycle) {
	if r := recover(); r != nil {
		c.err = fmt.Errorf("cycle panicked: %v", r)
		m.Logger.Error("cycle_panic", zap.String("alert", m.Name), zap.Any("panic", r),
			zap.String("state", c.state.String()))
	}
	c.enter(StateIdle)

	d := m.clock().Sub(c.started)
	m.metrics().Cycle(ctx, m.Name, d)

	m.mu.Lock()
	m.cycles++
	m.mu.Unlock()

	fields := []zap.Field{
		zap.String("alert", m.Name),
		zap.String("cycle", c.id),
		zap.Int("targets", len(c.results)),
		zap.Duration("duration", d),
	}
	if c.event != nil {
		fields = append(fields, zap.String("level", c.event.Level))
	}
	if c.matched != nil {
		fields = append(fields, zap.String("threshold", c.matched.Type))
	}
	if c.err != nil {
		fields = append(fields, zap.Error(c.err))
	}
	m.Logger.Info("cycle_completed", fields...)

	m.Scheduler.ScheduleNext()
}

func (m *Monitor) record(s domain.Snapshot) (err error) {
	defer plugin.Recover("recorder", &err)
	return m.Recorder.Record(s)
}

// evaluate returns one result per threshold, in configured order, and the
// first breached one.
func (m *Monitor) evaluate() ([]domain.ThresholdResult, *domain.ThresholdResult) {
	results := make([]domain.ThresholdResult, 0, len(m.Thresholds))
	var matched *domain.ThresholdResult

	for _, nt := range m.Thresholds {
		res, err := checkValue(nt.Threshold)
		if res.Type == "" {
			res.Type = nt.Type
		}
		if err != nil {
			m.Logger.Warn("threshold_failed",
				zap.String("alert", m.Name),
				zap.String("threshold", nt.Type),
				zap.Error(err),
			)
			res = domain.ThresholdResult{Type: nt.Type, Err: err.Error()}
		}
		results = append(results, res)
	}

	for i := range results {
		if results[i].Breached {
			matched = &results[i]
			break
		}
	}
	return results, matched
}

func checkValue(t threshold.Threshold) (res domain.ThresholdResult, err error) {
	defer plugin.Recover("threshold", &err)
	return t.CheckValue()
}

// build assembles the base event and runs it through the builders. A
// failing builder is skipped; the chain continues from its input.
func (m *Monitor) build(ctx context.Context, c *cycle) domain.Event {
	level := domain.LevelInfo
	var matched *domain.ThresholdResult
	if c.matched != nil {
		level = c.matched.Level
		if level == "" {
			level = domain.LevelInfo
		}
		cp := *c.matched
		matched = &cp
		m.metrics().Breach(ctx, m.Name, level)
	}

	ev := domain.Event{
		ID:     c.id,
		Name:   m.EventName,
		Raised: m.clock().UTC(),
		Level:  level,
		Info: domain.EventInfo{
			Site:             m.Site,
			ServerSets:       c.snapshot.ServerSets,
			ServerSetCounts:  c.snapshot.ServerSetCounts,
			Thresholds:       c.thresholds,
			MatchedThreshold: matched,
		},
	}

	for _, nb := range m.Builders {
		next, err := runBuilder(ctx, nb.Builder, ev)
		if err != nil {
			m.Logger.Warn("event_builder_failed",
				zap.String("alert", m.Name),
				zap.String("builder", nb.Type),
				zap.Error(err),
			)
			continue
		}
		ev = next
	}
	return ev
}

func runBuilder(ctx context.Context, b eventbuilder.Builder, ev domain.Event) (out domain.Event, err error) {
	defer plugin.Recover("event builder", &err)
	return b.Build(ctx, ev)
}

func (m *Monitor) metrics() metrics.Recorder {
	if m.Metrics == nil {
		return metrics.Noop{}
	}
	return m.Metrics
}

func (m *Monitor) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// Status is the read model served by the HTTP API.
type Status struct {
	Name      string        `json:"name"`
	Site      string        `json:"site,omitempty"`
	EventName string        `json:"eventName"`
	Targets   int           `json:"targets"`
	Cycles    int64         `json:"cycles"`
	LastEvent *domain.Event `json:"lastEvent,omitempty"`
}

// Last returns the most recently emitted event.
func (m *Monitor) Last() (domain.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return domain.Event{}, false
	}
	return *m.last, true
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Status{
		Name:      m.Name,
		Site:      m.Site,
		EventName: m.EventName,
		Targets:   m.Fleet.Size(),
		Cycles:    m.cycles,
	}
	if m.last != nil {
		ev := *m.last
		s.LastEvent = &ev
	}
	return s
}

// History returns the recorded snapshots, oldest first.
func (m *Monitor) History() []domain.Snapshot {
	return m.Recorder.All()
}
