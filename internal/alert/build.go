package alert

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/config"
	"github.com/hamed0406/healthalert/internal/eventbuilder"
	"github.com/hamed0406/healthalert/internal/metrics"
	"github.com/hamed0406/healthalert/internal/notify"
	"github.com/hamed0406/healthalert/internal/recorder"
	"github.com/hamed0406/healthalert/internal/scheduler"
	"github.com/hamed0406/healthalert/internal/threshold"
)

// Deps are the shared collaborators every alert is built from.
type Deps struct {
	Logger     *zap.Logger
	Sweeper    Sweeper
	Dispatcher *notify.Dispatcher
	Notifiers  *notify.Registry
	Thresholds *threshold.Registry
	Builders   *eventbuilder.Registry
	Metrics    metrics.Recorder
}

// Build resolves an alert's thresholds, event builders, notification
// routes and schedule. Every problem is returned as a
// config.ConfigurationError; on success the routes are registered with
// the dispatcher.
func Build(cfg config.AlertConfig, d Deps) (*Monitor, error) {
	p := fmt.Sprintf("alerts[%s]", cfg.Name)
	var errs error

	rec := recorder.New(cfg.MaxRecordings)

	thresholds := make([]NamedThreshold, 0, len(cfg.Thresholds))
	for i, params := range cfg.Thresholds {
		typ, _ := params["type"].(string)
		t, err := d.Thresholds.Build(typ, rec, params)
		if err != nil {
			errs = multierr.Append(errs, &config.ConfigurationError{Path: fmt.Sprintf("%s.thresholds[%d]", p, i), Err: err})
			continue
		}
		if s, ok := t.(*threshold.Sustained); ok && s.Recordings() > rec.Max() {
			errs = multierr.Append(errs, &config.ConfigurationError{
				Path: fmt.Sprintf("%s.thresholds[%d].recordings", p, i),
				Err:  fmt.Errorf("%d exceeds maxRecordings %d", s.Recordings(), rec.Max()),
			})
			continue
		}
		thresholds = append(thresholds, NamedThreshold{Type: typ, Threshold: t})
	}

	builders := make([]NamedBuilder, 0, len(cfg.EventBuilders))
	for i, params := range cfg.EventBuilders {
		typ, _ := params["type"].(string)
		b, err := d.Builders.Build(typ, params)
		if err != nil {
			errs = multierr.Append(errs, &config.ConfigurationError{Path: fmt.Sprintf("%s.eventBuilders[%d]", p, i), Err: err})
			continue
		}
		builders = append(builders, NamedBuilder{Type: typ, Builder: b})
	}

	routes := make([]notify.Route, 0, len(cfg.Notifications))
	for i, n := range cfg.Notifications {
		r, err := d.Notifiers.Route(n.Type, n.Levels)
		if err != nil {
			errs = multierr.Append(errs, &config.ConfigurationError{Path: fmt.Sprintf("%s.notifications[%d]", p, i), Err: err})
			continue
		}
		routes = append(routes, r)
	}

	sched, err := scheduler.New(cfg.Schedule.Interval, cfg.Schedule.Cron)
	if err != nil {
		errs = multierr.Append(errs, &config.ConfigurationError{Path: p + ".schedule", Err: err})
	}
	if cfg.FleetData == nil {
		errs = multierr.Append(errs, &config.ConfigurationError{Path: p + ".fleet", Err: fmt.Errorf("not loaded")})
	}

	if errs != nil {
		return nil, errs
	}

	eventName := config.EventName(cfg.Name)
	d.Dispatcher.Register(eventName, routes...)

	return &Monitor{
		Name:       cfg.Name,
		Site:       cfg.Site,
		EventName:  eventName,
		Logger:     d.Logger,
		Fleet:      cfg.FleetData,
		Sweeper:    d.Sweeper,
		Recorder:   rec,
		Thresholds: thresholds,
		Builders:   builders,
		Emitter:    d.Dispatcher,
		Scheduler:  scheduler.NewTimer(d.Logger, cfg.Name, sched),
		Metrics:    d.Metrics,
	}, nil
}

// BuildAll builds every alert of cfg, reporting all problems together.
func BuildAll(cfg *config.Config, d Deps) ([]*Monitor, error) {
	var (
		out  []*Monitor
		errs error
	)
	for _, a := range cfg.Alerts {
		m, err := Build(a, d)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, m)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}
