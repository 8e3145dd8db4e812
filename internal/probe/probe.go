package probe

import (
	"context"
	"time"

	"github.com/hamed0406/healthalert/internal/domain"
)

// Exchange is the raw transport result of one probe, before classification.
//
// Fields:
//   - StatusCode/Body: set when a response was received and fully read.
//   - Err: any transport failure (refused, DNS, reset, body read).
//   - TimedOut: the definition's deadline fired; takes precedence over Err.
type Exchange struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
	TimedOut   bool
	Latency    time.Duration
}

// Prober performs one probe against one target and always returns exactly
// one classified outcome.
type Prober interface {
	Probe(ctx context.Context, t domain.Target, hc *domain.HealthCheck) domain.Outcome
}
