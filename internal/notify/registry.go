package notify

import (
	"errors"
	"fmt"

	"github.com/hamed0406/healthalert/internal/plugin"
)

const (
	TypeLog       = "log"
	TypeSlack     = "slack"
	TypeRedis     = "redis"
	TypePostgres  = "postgres"
	TypeWebsocket = "websocket"
)

// ErrNotConfigured is returned for a known notifier type whose connection
// settings are missing (e.g. slack without a webhook).
var ErrNotConfigured = errors.New("notifier not configured")

var knownTypes = map[string]bool{
	TypeLog:       true,
	TypeSlack:     true,
	TypeRedis:     true,
	TypePostgres:  true,
	TypeWebsocket: true,
}

// Registry holds the notifier instances available to alert routes.
// Instances are shared across alerts.
type Registry struct {
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: map[string]Notifier{}}
}

func (r *Registry) Register(typ string, n Notifier) {
	r.notifiers[typ] = n
}

// Route resolves a notification entry of an alert.
func (r *Registry) Route(typ string, levels []string) (Route, error) {
	n, ok := r.notifiers[typ]
	if !ok {
		if knownTypes[typ] {
			return Route{}, fmt.Errorf("%w: %s", ErrNotConfigured, typ)
		}
		return Route{}, fmt.Errorf("%w %q (known: %v)", plugin.ErrUnknownType, typ, plugin.Names(knownTypes))
	}
	return Route{Type: typ, Notifier: n, Levels: levels}, nil
}

// Known reports whether typ is a notifier type this package implements.
func Known(typ string) bool { return knownTypes[typ] }
