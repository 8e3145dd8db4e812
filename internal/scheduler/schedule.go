package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes the next activation after a given time.
// cron.Schedule satisfies it.
type Schedule interface {
	Next(time.Time) time.Time
}

// Interval fires a fixed delay after the previous cycle finished.
type Interval time.Duration

func (i Interval) Next(t time.Time) time.Time { return t.Add(time.Duration(i)) }

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron accepts standard five-field expressions, an optional leading
// seconds field, and descriptors such as "@hourly" or "@every 30s".
func ParseCron(spec string) (Schedule, error) {
	s, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return s, nil
}

// New returns the schedule for an alert. Exactly one of interval and
// cronSpec must be set.
func New(interval time.Duration, cronSpec string) (Schedule, error) {
	switch {
	case interval > 0 && cronSpec != "":
		return nil, errors.New("set either interval or cron, not both")
	case interval > 0:
		return Interval(interval), nil
	case cronSpec != "":
		return ParseCron(cronSpec)
	case interval < 0:
		return nil, errors.New("interval must be positive")
	default:
		return nil, errors.New("interval or cron is required")
	}
}
