package logger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologLogger_LogLevels(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf), Config{LogLevel: Warn})

	logger.Info(ctx, "not shown")
	assert.Empty(t, buf.String())

	logger.Warn(ctx, "missing embedding", "pets")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "missing embedding")

	buf.Reset()
	logger.LogMode(Info).Info(ctx, "embedded relation")
	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestZerologLogger_Trace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf), Config{
		LogLevel:      Info,
		SlowThreshold: 100 * time.Millisecond,
	})

	t.Run("Normal trace", func(t *testing.T) {
		buf.Reset()
		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "save users#1", 2
		}, nil)

		output := buf.String()
		assert.Contains(t, output, `"op":"save users#1"`)
		assert.Contains(t, output, `"rows":2`)
	})

	t.Run("Slow operation", func(t *testing.T) {
		buf.Reset()
		logger.Trace(ctx, time.Now().Add(-150*time.Millisecond), func() (string, int64) {
			return "preload users.pets", 1
		}, nil)

		assert.Contains(t, buf.String(), "slow_threshold")
	})

	t.Run("Error trace", func(t *testing.T) {
		buf.Reset()
		logger.Trace(ctx, time.Now(), func() (string, int64) {
			return "delete pets#4", 0
		}, assert.AnError)

		assert.Contains(t, buf.String(), `"level":"error"`)
	})
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, ZerologLevel(Silent))
	assert.Equal(t, zerolog.ErrorLevel, ZerologLevel(Error))
	assert.Equal(t, zerolog.WarnLevel, ZerologLevel(Warn))
	assert.Equal(t, zerolog.InfoLevel, ZerologLevel(Info))
}
