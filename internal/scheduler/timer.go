// Package scheduler runs alert cycles on a schedule without overlap.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler drives an alert's cycles. The next cycle is armed only when the
// running one calls ScheduleNext, so cycles never overlap.
type Scheduler interface {
	Start(ctx context.Context, fn func(context.Context))
	ScheduleNext()
	Stop()
}

type Timer struct {
	Logger   *zap.Logger
	Name     string
	Schedule Schedule

	now func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	fn      func(context.Context)
	timer   *time.Timer
	armed   bool
	stopped bool
}

func NewTimer(logger *zap.Logger, name string, s Schedule) *Timer {
	return &Timer{Logger: logger, Name: name, Schedule: s, now: time.Now}
}

// Start runs fn once right away, in its own goroutine. Later runs happen
// only after ScheduleNext. Cancelling ctx has the same effect as Stop.
func (t *Timer) Start(ctx context.Context, fn func(context.Context)) {
	t.mu.Lock()
	t.ctx = ctx
	t.fn = fn
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.Stop()
	}()

	t.Logger.Info("scheduler_started", zap.String("alert", t.Name))
	go fn(ctx)
}

// ScheduleNext arms one run at Schedule.Next(now). Calls while a run is
// already armed, or after Stop, are ignored.
func (t *Timer) ScheduleNext() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.armed || t.fn == nil || t.ctx.Err() != nil {
		return
	}

	now := t.now()
	next := t.Schedule.Next(now)
	if next.IsZero() {
		t.Logger.Warn("schedule_exhausted", zap.String("alert", t.Name))
		return
	}

	t.armed = true
	t.timer = time.AfterFunc(next.Sub(now), t.fire)
	t.Logger.Debug("schedule_armed", zap.String("alert", t.Name), zap.Time("next", next))
}

func (t *Timer) fire() {
	t.mu.Lock()
	t.armed = false
	if t.stopped || t.ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	ctx, fn := t.ctx, t.fn
	t.mu.Unlock()

	fn(ctx)
}

// Stop disarms the pending run. A cycle already in progress finishes.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.Logger.Info("scheduler_stopped", zap.String("alert", t.Name))
}
