package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// LogrLogger implements Interface on top of a logr.Logger. Warnings are
// written at verbosity 0 and informational messages at verbosity 1.
type LogrLogger struct {
	Logger                    logr.Logger
	LogLevel                  LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewLogrLogger creates a new logger using logr
func NewLogrLogger(logger logr.Logger, config Config) Interface {
	return &LogrLogger{
		Logger:                    logger,
		LogLevel:                  config.LogLevel,
		SlowThreshold:             config.SlowThreshold,
		IgnoreRecordNotFoundError: config.IgnoreRecordNotFoundError,
	}
}

// LogMode sets the log level
func (l *LogrLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info logs info messages
func (l *LogrLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.Logger.V(1).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn logs warning messages
func (l *LogrLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.Logger.Info(fmt.Sprintf(msg, data...), "level", "warn")
	}
}

// Error logs error messages
func (l *LogrLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.Logger.Error(nil, fmt.Sprintf(msg, data...))
	}
}

// Trace logs one traced operation
func (l *LogrLogger) Trace(ctx context.Context, begin time.Time, fc func() (op string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	outcome := classify(l.LogLevel, l.SlowThreshold, l.IgnoreRecordNotFoundError, elapsed, err)
	if outcome == traceSkipped {
		return
	}

	op, rows := fc()
	kv := []interface{}{"duration", durationString(elapsed), "op", op}
	if rows != -1 {
		kv = append(kv, "rows", rows)
	}

	switch outcome {
	case traceFailed:
		l.Logger.Error(err, "operation", kv...)
	case traceSlow:
		l.Logger.Info("SLOW operation", append(kv, "slow_threshold", l.SlowThreshold.String())...)
	default:
		l.Logger.V(1).Info("operation", kv...)
	}
}
