package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/alert"
	"github.com/hamed0406/healthalert/internal/config"
	"github.com/hamed0406/healthalert/internal/eventbuilder"
	"github.com/hamed0406/healthalert/internal/httpapi"
	"github.com/hamed0406/healthalert/internal/logging"
	"github.com/hamed0406/healthalert/internal/metrics"
	"github.com/hamed0406/healthalert/internal/notify"
	"github.com/hamed0406/healthalert/internal/probe"
	"github.com/hamed0406/healthalert/internal/threshold"
)

func main() {
	path := flag.String("config", envOr("CONFIG_PATH", "healthalert.yaml"), "main configuration file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "config:", e)
		}
		os.Exit(2)
	}

	logger, err := logging.NewLogger(logging.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level, Stderr: cfg.Log.Stderr})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exit", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	mp, rec, err := metrics.Setup(ctx, cfg.Metrics.Exporter)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(sctx)
	}()

	dns := probe.NewDNSDiagnoser(cfg.DNS.Server, cfg.DNS.Timeout)
	sweeper := probe.NewSweeper(logger, probe.NewHTTPProber(logger, dns, rec))

	notifiers := notify.NewRegistry()
	notifiers.Register(notify.TypeLog, notify.NewLog(logger))
	if s := notify.NewSlack(cfg.Notifiers.Slack.Webhook); s != nil {
		notifiers.Register(notify.TypeSlack, s)
	}

	if rc := cfg.Notifiers.Redis; rc.Addr != "" {
		client, err := notify.DialRedis(ctx, &redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err != nil {
			return fmt.Errorf("redis notifier: %w", err)
		}
		defer client.Close()
		notifiers.Register(notify.TypeRedis, notify.NewRedis(client, rc.Channel))
		logger.Info("notifier_ready", zap.String("type", notify.TypeRedis), zap.String("addr", rc.Addr))
	}

	var archive *notify.Archive
	if dsn := cfg.Notifiers.Postgres.DSN; dsn != "" {
		archive, err = notify.NewArchive(ctx, dsn, logger)
		if err != nil {
			return fmt.Errorf("postgres notifier: %w", err)
		}
		defer archive.Close()
		notifiers.Register(notify.TypePostgres, archive)
		logger.Info("notifier_ready", zap.String("type", notify.TypePostgres))
	}

	hub := notify.NewHub(cfg.API.AllowedOrigins, logger)
	go hub.Run(ctx)
	notifiers.Register(notify.TypeWebsocket, hub)

	monitors, err := alert.BuildAll(cfg, alert.Deps{
		Logger:     logger,
		Sweeper:    sweeper,
		Dispatcher: notify.NewDispatcher(logger),
		Notifiers:  notifiers,
		Thresholds: threshold.NewRegistry(),
		Builders:   eventbuilder.NewRegistry(),
		Metrics:    rec,
	})
	if err != nil {
		return err
	}

	views := make([]httpapi.Monitor, 0, len(monitors))
	for _, m := range monitors {
		views = append(views, m)
	}
	srv := httpapi.NewServer(logger, views)
	srv.Events = hub
	if archive != nil {
		srv.Archive = archive
	}
	if cfg.Metrics.Exporter == "prometheus" {
		srv.Metrics = promhttp.Handler()
	}

	httpSrv := &http.Server{
		Addr: cfg.API.Addr,
		Handler: srv.Router(httpapi.Options{
			Keys:           cfg.API.Keys,
			AllowedOrigins: cfg.API.AllowedOrigins,
			RatePerMinute:  cfg.API.RateLimit.PerMinute,
			RateBurst:      cfg.API.RateLimit.Burst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	for _, m := range monitors {
		m.Run(ctx)
		logger.Info("alert_started", zap.String("alert", m.Name), zap.String("event", m.EventName))
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.API.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	for _, m := range monitors {
		m.Stop()
	}
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpSrv.Shutdown(sctx); serr != nil {
		err = multierr.Append(err, serr)
	}
	logger.Info("shutdown")
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
