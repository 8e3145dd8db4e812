// cmd/preflight/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/alert"
	"github.com/hamed0406/healthalert/internal/config"
	"github.com/hamed0406/healthalert/internal/eventbuilder"
	"github.com/hamed0406/healthalert/internal/metrics"
	"github.com/hamed0406/healthalert/internal/notify"
	"github.com/hamed0406/healthalert/internal/probe"
	"github.com/hamed0406/healthalert/internal/threshold"
)

func main() {
	path := flag.String("config", "healthalert.yaml", "main configuration file")
	flag.Parse()

	fail := func(msg string) { fmt.Fprintln(os.Stderr, "✖", msg) }
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*path)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
		os.Exit(1)
	}
	ok(fmt.Sprintf("%s loaded (%d alerts)", *path, len(cfg.Alerts)))

	// Nothing is dialled here: only whether each notifier type is
	// configured matters for resolving routes.
	nop := zap.NewNop()
	notifiers := notify.NewRegistry()
	notifiers.Register(notify.TypeLog, notify.NewLog(nop))
	notifiers.Register(notify.TypeWebsocket, notify.NewHub(nil, nop))
	if s := notify.NewSlack(cfg.Notifiers.Slack.Webhook); s != nil {
		notifiers.Register(notify.TypeSlack, s)
	}
	if cfg.Notifiers.Redis.Addr != "" {
		notifiers.Register(notify.TypeRedis, notify.NewRedis(nil, cfg.Notifiers.Redis.Channel))
	}
	if cfg.Notifiers.Postgres.DSN != "" {
		notifiers.Register(notify.TypePostgres, &notify.Archive{})
	}

	monitors, err := alert.BuildAll(cfg, alert.Deps{
		Logger:     nop,
		Sweeper:    probe.NewSweeper(nop, probe.NewHTTPProber(nop, nil, metrics.Noop{})),
		Dispatcher: notify.NewDispatcher(nop),
		Notifiers:  notifiers,
		Thresholds: threshold.NewRegistry(),
		Builders:   eventbuilder.NewRegistry(),
		Metrics:    metrics.Noop{},
	})
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
		os.Exit(1)
	}

	for i, m := range monitors {
		a := cfg.Alerts[i]
		ok(fmt.Sprintf("alert %q: %d targets, %d thresholds, %d notifications", m.Name, m.Fleet.Size(), len(a.Thresholds), len(a.Notifications)))
		for _, w := range config.Warnings(m.Fleet) {
			warn(fmt.Sprintf("alert %q: %s", m.Name, w))
		}
		if len(a.Notifications) == 0 {
			warn(fmt.Sprintf("alert %q has no notifications; events are only kept in memory", m.Name))
		}
	}

	if len(cfg.API.Keys) == 0 {
		warn("api.keys is empty; /api and /ws are open to anyone who can reach " + cfg.API.Addr)
	}
	for _, k := range cfg.API.Keys {
		if strings.TrimSpace(k) != k {
			warn("api.keys contains a key with surrounding spaces")
			break
		}
	}
	if cfg.Notifiers.Postgres.DSN == "" {
		warn("DATABASE_URL empty; /api/alerts/{name}/events will answer 501.")
	} else {
		ok("DATABASE_URL present")
	}
	if len(cfg.API.AllowedOrigins) == 0 {
		warn("api.allowedOrigins empty; CORS allows every origin.")
	} else {
		ok("api.allowedOrigins=" + strings.Join(cfg.API.AllowedOrigins, ","))
	}

	ok("preflight passed")
}
