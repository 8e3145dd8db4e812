package notify

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamed0406/healthalert/internal/domain"
)

// Log writes events to the application log. Events at info level are
// logged at info, every other level at warn.
type Log struct {
	Logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log { return &Log{Logger: logger} }

func (l *Log) Notify(_ context.Context, eventName string, ev domain.Event) error {
	lvl := zapcore.WarnLevel
	if ev.Level == domain.LevelInfo {
		lvl = zapcore.InfoLevel
	}
	fields := []zap.Field{
		zap.String("event", eventName),
		zap.String("id", ev.ID),
		zap.String("level", ev.Level),
		zap.String("site", ev.Info.Site),
		zap.Time("raised", ev.Raised),
		zap.Any("counts", ev.Info.ServerSetCounts),
	}
	if m := ev.Info.MatchedThreshold; m != nil {
		fields = append(fields, zap.String("threshold", m.Type), zap.Any("threshold_detail", m.Detail))
	}
	l.Logger.Log(lvl, "alert_event", fields...)
	return nil
}
