package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gorm.io/dynform/utils"
)

// LogrusLogger implements Interface using logrus
type LogrusLogger struct {
	Logger                    *logrus.Logger
	LogLevel                  LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewLogrusLogger creates a new logger using logrus
func NewLogrusLogger(logger *logrus.Logger, config Config) Interface {
	return &LogrusLogger{
		Logger:                    logger,
		LogLevel:                  config.LogLevel,
		SlowThreshold:             config.SlowThreshold,
		IgnoreRecordNotFoundError: config.IgnoreRecordNotFoundError,
	}
}

// LogMode sets the log level
func (l *LogrusLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *LogrusLogger) entry(ctx context.Context, data []interface{}) *logrus.Entry {
	entry := l.Logger.WithFields(logrus.Fields{
		"file": utils.FileWithLineNum(),
		"data": data,
	})
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

// Info logs info messages
func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.entry(ctx, data).Info(msg)
	}
}

// Warn logs warning messages
func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.entry(ctx, data).Warn(msg)
	}
}

// Error logs error messages
func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.entry(ctx, data).Error(msg)
	}
}

// Trace logs one traced operation
func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (op string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	outcome := classify(l.LogLevel, l.SlowThreshold, l.IgnoreRecordNotFoundError, elapsed, err)
	if outcome == traceSkipped {
		return
	}

	op, rows := fc()
	fields := logrus.Fields{
		"file":     utils.FileWithLineNum(),
		"duration": durationString(elapsed),
		"op":       op,
	}
	if rows != -1 {
		fields["rows"] = rows
	}

	entry := l.Logger.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}

	switch outcome {
	case traceFailed:
		entry.WithField("error", err.Error()).Error("operation")
	case traceSlow:
		entry.WithField("slow_threshold", l.SlowThreshold.String()).Warn("SLOW operation")
	default:
		entry.Info("operation")
	}
}
