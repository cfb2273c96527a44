package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newZapBuffer(buf *bytes.Buffer) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(buf),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

func TestNewZapLogger(t *testing.T) {
	var buf bytes.Buffer

	zapAdapter := NewZapLogger(newZapBuffer(&buf), Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	})

	require.NotNil(t, zapAdapter)
	assert.Equal(t, Info, zapAdapter.(*ZapLogger).LogLevel)
	assert.Equal(t, 100*time.Millisecond, zapAdapter.(*ZapLogger).SlowThreshold)
}

func TestZapLogger_LogMode(t *testing.T) {
	logger := NewZapLogger(zap.NewNop(), Config{LogLevel: Error})

	infoLogger := logger.LogMode(Info)
	assert.Equal(t, Info, infoLogger.(*ZapLogger).LogLevel)
	assert.Equal(t, Error, logger.(*ZapLogger).LogLevel)
}

func TestZapLogger_LogLevels(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewZapLogger(newZapBuffer(&buf), Config{LogLevel: Info})

	tests := []struct {
		name   string
		level  LogLevel
		logMsg string
	}{
		{"Info level", Info, "embedded relation"},
		{"Warn level", Warn, "missing embedding"},
		{"Error level", Error, "reconcile failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			switch tt.level {
			case Info:
				logger.Info(ctx, tt.logMsg, "field", "pets")
			case Warn:
				logger.Warn(ctx, tt.logMsg, "field", "pets")
			case Error:
				logger.Error(ctx, tt.logMsg, "field", "pets")
			}

			output := buf.String()
			assert.Contains(t, output, tt.logMsg)
			assert.Contains(t, output, "pets")
		})
	}
}

func TestZapLogger_Trace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewZapLogger(newZapBuffer(&buf), Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	})

	t.Run("Normal trace", func(t *testing.T) {
		buf.Reset()
		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "save users#1", 5
		}, nil)

		output := buf.String()
		assert.Contains(t, output, "save users#1")
		assert.Contains(t, output, `"rows":5`)
		assert.Contains(t, output, "duration")
	})

	t.Run("Slow operation", func(t *testing.T) {
		buf.Reset()
		logger.Trace(ctx, time.Now().Add(-150*time.Millisecond), func() (string, int64) {
			return "preload users.pets", 1000
		}, nil)

		output := buf.String()
		assert.Contains(t, output, "SLOW")
		assert.Contains(t, output, "slow_threshold")
	})

	t.Run("Error trace", func(t *testing.T) {
		buf.Reset()
		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "delete pets#4", 0
		}, assert.AnError)

		assert.Contains(t, buf.String(), "error")
	})

	t.Run("Record not found error with ignore", func(t *testing.T) {
		buf.Reset()
		quiet := logger.LogMode(Error)
		quiet.(*ZapLogger).IgnoreRecordNotFoundError = true

		quiet.Trace(ctx, time.Now(), func() (string, int64) {
			return "first users#9", 0
		}, ErrRecordNotFound)

		assert.Empty(t, buf.String())
	})
}

func TestZapLogger_SilentLevel(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewZapLogger(newZapBuffer(&buf), Config{LogLevel: Silent})

	logger.Info(ctx, "This should not be logged")
	logger.Warn(ctx, "This should not be logged")
	logger.Error(ctx, "This should not be logged")
	logger.Trace(ctx, time.Now(), func() (string, int64) { return "save", 1 }, assert.AnError)

	assert.Empty(t, buf.String())
}

func TestZapLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		expected zapcore.Level
	}{
		{"Silent", Silent, zapcore.DPanicLevel},
		{"Error", Error, zapcore.ErrorLevel},
		{"Warn", Warn, zapcore.WarnLevel},
		{"Info", Info, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ZapLevel(tt.level))
		})
	}
}
