package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"gorm.io/dynform/utils"
)

// ZerologLogger implements Interface using zerolog
type ZerologLogger struct {
	Logger                    zerolog.Logger
	LogLevel                  LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewZerologLogger creates a new logger using zerolog
func NewZerologLogger(logger zerolog.Logger, config Config) Interface {
	return &ZerologLogger{
		Logger:                    logger,
		LogLevel:                  config.LogLevel,
		SlowThreshold:             config.SlowThreshold,
		IgnoreRecordNotFoundError: config.IgnoreRecordNotFoundError,
	}
}

// NewZerologConsoleLogger writes human readable output to stdout
func NewZerologConsoleLogger(config Config) Interface {
	consoleWriter := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stdout
		w.TimeFormat = time.RFC3339
	})
	logger := zerolog.New(consoleWriter).
		Level(ZerologLevel(config.LogLevel)).
		With().
		Timestamp().
		Logger()

	return NewZerologLogger(logger, config)
}

// LogMode sets the log level
func (l *ZerologLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZerologLogger) send(ctx context.Context, event *zerolog.Event, msg string, data []interface{}) {
	event = event.Str("file", utils.FileWithLineNum()).Interface("data", data)
	if ctx != nil {
		event = event.Ctx(ctx)
	}
	event.Msg(msg)
}

// Info logs info messages
func (l *ZerologLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.send(ctx, l.Logger.Info(), msg, data)
	}
}

// Warn logs warning messages
func (l *ZerologLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.send(ctx, l.Logger.Warn(), msg, data)
	}
}

// Error logs error messages
func (l *ZerologLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.send(ctx, l.Logger.Error(), msg, data)
	}
}

// Trace logs one traced operation
func (l *ZerologLogger) Trace(ctx context.Context, begin time.Time, fc func() (op string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)

	var event *zerolog.Event
	switch classify(l.LogLevel, l.SlowThreshold, l.IgnoreRecordNotFoundError, elapsed, err) {
	case traceFailed:
		event = l.Logger.Error().Err(err)
	case traceSlow:
		event = l.Logger.Warn().Str("slow_threshold", l.SlowThreshold.String())
	case traceDone:
		event = l.Logger.Info()
	default:
		return
	}

	op, rows := fc()
	event = event.
		Str("file", utils.FileWithLineNum()).
		Str("duration", durationString(elapsed)).
		Str("op", op)
	if rows != -1 {
		event = event.Int64("rows", rows)
	}
	if ctx != nil {
		event = event.Ctx(ctx)
	}

	event.Msg("operation")
}

// ZerologLevel converts LogLevel to zerolog.Level
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case Silent:
		return zerolog.Disabled
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
