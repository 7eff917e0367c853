package logging

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gl "gorm.io/gorm/logger"
)

// GormLogger routes gorm's SQL tracing through zap.
type GormLogger struct {
	zap                       *zap.Logger
	LogLevel                  gl.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewGormLogger returns a gorm logger with a 200ms slow query threshold.
// Dev mode logs every statement; otherwise only warnings and errors.
func NewGormLogger(z *zap.Logger, dev bool) *GormLogger {
	level := gl.Warn
	if dev {
		level = gl.Info
	}
	return &GormLogger{
		zap:                       z.Named("gorm").WithOptions(zap.AddCallerSkip(3)),
		LogLevel:                  level,
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	}
}

// LogMode log mode
func (l *GormLogger) LogMode(level gl.LogLevel) gl.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gl.Info {
		l.zap.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gl.Warn {
		l.zap.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= gl.Error {
		l.zap.Sugar().Errorf(msg, data...)
	}
}

// Trace print sql message
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gl.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.LogLevel >= gl.Error && (!errors.Is(err, gl.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		sql, rows := fc()
		l.zap.Error("sql error", zap.Error(err), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= gl.Warn:
		sql, rows := fc()
		l.zap.Warn("slow sql", zap.Duration("threshold", l.SlowThreshold), zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	case l.LogLevel == gl.Info:
		sql, rows := fc()
		l.zap.Debug("sql", zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
	}
}

// ParamsFilter drops bound values so logged statements keep their
// placeholders. Tokens and emails never reach the log.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...any) (string, []any) {
	return sql, nil
}
