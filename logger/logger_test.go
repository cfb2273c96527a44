package logger

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, config Config) Interface {
	return New(log.New(buf, "", 0), config)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected LogLevel
	}{
		{"silent", Silent},
		{"ERROR", Error},
		{"warn", Warn},
		{"warning", Warn},
		{" info ", Info},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
			assert.NotEmpty(t, level.String())
		})
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLogLevel(t *testing.T) {
	t.Setenv("DYNFORM_LOG_LEVEL", "info")
	assert.Equal(t, Info, DefaultLogLevel())

	t.Setenv("DYNFORM_LOG_LEVEL", "nonsense")
	assert.Equal(t, Warn, DefaultLogLevel())
}

func TestLogger_Levels(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	l := newBufferLogger(&buf, Config{LogLevel: Warn})

	l.Info(ctx, "hidden %s", "info")
	assert.Empty(t, buf.String())

	l.Warn(ctx, "visible %s", "warn")
	assert.Contains(t, buf.String(), "[warn] visible warn")

	buf.Reset()
	l.Error(ctx, "failed %d times", 2)
	assert.Contains(t, buf.String(), "[error] failed 2 times")
}

func TestLogger_LogMode(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, Config{LogLevel: Error})

	info := l.LogMode(Info)
	info.Info(context.Background(), "now visible")

	assert.Contains(t, buf.String(), "now visible")
	assert.Equal(t, Error, l.(*logger).LogLevel)
}

func TestLogger_Trace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	l := newBufferLogger(&buf, Config{LogLevel: Info, SlowThreshold: 100 * time.Millisecond})

	t.Run("Normal trace", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now(), func() (string, int64) {
			return "save users#1", 3
		}, nil)
		assert.Contains(t, buf.String(), "save users#1")
		assert.Contains(t, buf.String(), "[rows:3]")
	})

	t.Run("Unknown rows", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now(), func() (string, int64) {
			return "reconcile", -1
		}, nil)
		assert.Contains(t, buf.String(), "[rows:-]")
	})

	t.Run("Slow trace", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now().Add(-150*time.Millisecond), func() (string, int64) {
			return "save pets#9", 1
		}, nil)
		assert.Contains(t, buf.String(), "SLOW OPERATION")
	})

	t.Run("Error trace", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now(), func() (string, int64) {
			return "first users#7", 0
		}, assert.AnError)
		assert.Contains(t, buf.String(), assert.AnError.Error())
	})

	t.Run("Ignored record not found", func(t *testing.T) {
		buf.Reset()
		quiet := New(log.New(&buf, "", 0), Config{LogLevel: Error, IgnoreRecordNotFoundError: true})
		quiet.Trace(ctx, time.Now(), func() (string, int64) {
			return "first users#7", 0
		}, ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("Silent", func(t *testing.T) {
		buf.Reset()
		l.LogMode(Silent).Trace(ctx, time.Now(), func() (string, int64) {
			return "save users#1", 1
		}, assert.AnError)
		assert.Empty(t, buf.String())
	})
}
