package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS alert_events (
	id         UUID PRIMARY KEY,
	name       TEXT        NOT NULL,
	level      TEXT        NOT NULL,
	raised     TIMESTAMPTZ NOT NULL,
	payload    JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS alert_events_name_raised ON alert_events (name, raised DESC);
`

// DefaultArchiveTimeout bounds each archive statement.
const DefaultArchiveTimeout = 5 * time.Second

// pgPool is the part of *pgxpool.Pool the archive uses.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Archive stores emitted events in Postgres.
type Archive struct {
	pool    pgPool
	log     *zap.Logger
	timeout time.Duration
}

func NewArchive(ctx context.Context, dsn string, log *zap.Logger) (*Archive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	ctxSchema, cancelSchema := context.WithTimeout(ctx, DefaultArchiveTimeout)
	defer cancelSchema()
	if _, err := pool.Exec(ctxSchema, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Archive{pool: pool, log: log, timeout: DefaultArchiveTimeout}, nil
}

func (a *Archive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *Archive) Notify(ctx context.Context, eventName string, ev domain.Event) error {
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		id = uuid.New()
		a.log.Debug("archive_event_id_replaced", zap.String("id", ev.ID), zap.String("new_id", id.String()))
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := a.bound(ctx)
	defer cancel()
	_, err = a.pool.Exec(ctx,
		`INSERT INTO alert_events (id, name, level, raised, payload)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO NOTHING`,
		id, eventName, ev.Level, ev.Raised, payload)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns up to limit archived events for eventName, newest first.
func (a *Archive) Recent(ctx context.Context, eventName string, limit int) ([]domain.Event, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()
	rows, err := a.pool.Query(ctx,
		`SELECT payload FROM alert_events
		  WHERE name = $1
		  ORDER BY raised DESC
		  LIMIT $2`, eventName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var ev domain.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode archived event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (a *Archive) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := a.timeout
	if timeout <= 0 {
		timeout = DefaultArchiveTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
