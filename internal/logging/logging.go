// Package logging builds the process-wide zap logger.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Name  string
	Level string // debug, info, warn, error
	Dev   bool
	File  string // rotated JSON log file; empty disables it
}

// New returns a JSON logger writing to stdout and, when File is set, to a
// lumberjack-rotated file.
func New(opts Options) *zap.Logger {
	if opts.Name == "" {
		opts.Name = "portfolio-pilot"
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "file",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	writes := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opts.File != "" {
		writes = append(writes, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    128, // MB
			MaxAge:     30,  // days
			MaxBackups: 30,
		}))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(writes...),
		zap.NewAtomicLevelAt(ParseLevel(opts.Level, opts.Dev)),
	)

	zopts := []zap.Option{zap.AddCaller(), zap.Fields(zap.String("app", opts.Name))}
	if opts.Dev {
		zopts = append(zopts, zap.Development())
	}
	return zap.New(core, zopts...)
}

// ParseLevel maps a level name to a zap level. Dev mode forces debug.
func ParseLevel(level string, dev bool) zapcore.Level {
	if dev {
		return zapcore.DebugLevel
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// MaskToken keeps a short prefix of a bearer token for correlation.
func MaskToken(token string) string {
	const keep = 6
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return token[:keep] + "…"
}

// Token is a zap field carrying a masked token.
func Token(token string) zap.Field {
	return zap.String("token", MaskToken(token))
}
