// Package notify delivers alert events to the configured channels.
package notify

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/domain"
	"github.com/hamed0406/healthalert/internal/plugin"
)

type Notifier interface {
	Notify(ctx context.Context, eventName string, ev domain.Event) error
}

// Multi sends to every notifier and returns all failures combined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, eventName string, ev domain.Event) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Notify(ctx, eventName, ev))
	}
	return err
}

// Route binds a notifier to an event name. An empty Levels accepts every
// level.
type Route struct {
	Type     string
	Notifier Notifier
	Levels   []string
}

func (r Route) Accepts(level string) bool {
	return len(r.Levels) == 0 || slices.Contains(r.Levels, level)
}

// DefaultDeliveryTimeout bounds a single notifier call.
const DefaultDeliveryTimeout = 10 * time.Second

// Dispatcher routes emitted events to the notifiers registered for their
// event name. Every delivery runs under Timeout, so a hung notifier cannot
// hold the cycle.
type Dispatcher struct {
	Logger  *zap.Logger
	Timeout time.Duration

	mu     sync.RWMutex
	routes map[string][]Route
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{Logger: logger, Timeout: DefaultDeliveryTimeout, routes: map[string][]Route{}}
}

// Register appends routes for eventName.
func (d *Dispatcher) Register(eventName string, routes ...Route) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[eventName] = append(d.routes[eventName], routes...)
}

// Emit delivers ev to every route of eventName that accepts its level.
// Each route is tried even when an earlier one fails; the returned error
// combines every failure.
func (d *Dispatcher) Emit(ctx context.Context, eventName string, ev domain.Event) error {
	d.mu.RLock()
	routes := d.routes[eventName]
	d.mu.RUnlock()

	if len(routes) == 0 {
		d.Logger.Debug("event_unrouted", zap.String("event", eventName))
		return nil
	}

	var errs error
	for _, r := range routes {
		if !r.Accepts(ev.Level) {
			continue
		}
		if err := d.deliver(ctx, r, eventName, ev); err != nil {
			d.Logger.Warn("notify_failed",
				zap.String("event", eventName),
				zap.String("notifier", r.Type),
				zap.String("level", ev.Level),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("notifier %s: %w", r.Type, err))
		}
	}
	return errs
}

func (d *Dispatcher) deliver(ctx context.Context, r Route, eventName string, ev domain.Event) (err error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer plugin.Recover("notifier "+r.Type, &err)
	return r.Notifier.Notify(ctx, eventName, ev)
}
