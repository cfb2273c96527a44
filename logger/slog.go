package logger

import (
	"context"
	"log/slog"
	"time"
)

type slogLogger struct {
	Logger                    *slog.Logger
	LogLevel                  LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewSlogLogger creates a new logger using log/slog
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &slogLogger{
		Logger:                    logger,
		LogLevel:                  config.LogLevel,
		SlowThreshold:             config.SlowThreshold,
		IgnoreRecordNotFoundError: config.IgnoreRecordNotFoundError,
	}
}

func (l *slogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.log(ctx, slog.LevelInfo, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.log(ctx, slog.LevelWarn, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.log(ctx, slog.LevelError, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (op string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	outcome := classify(l.LogLevel, l.SlowThreshold, l.IgnoreRecordNotFoundError, elapsed, err)
	if outcome == traceSkipped {
		return
	}

	op, rows := fc()
	fields := []slog.Attr{
		slog.String("duration", durationString(elapsed)),
		slog.String("op", op),
	}
	if rows != -1 {
		fields = append(fields, slog.Int64("rows", rows))
	}

	level := slog.LevelInfo
	switch outcome {
	case traceFailed:
		level = slog.LevelError
		fields = append(fields, slog.String("error", err.Error()))
	case traceSlow:
		level = slog.LevelWarn
		fields = append(fields, slog.String("slow_threshold", l.SlowThreshold.String()))
	}

	l.log(ctx, level, "operation", slog.Attr{Key: "trace", Value: slog.GroupValue(fields...)})
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.Logger.Log(ctx, level, msg, args...)
}
