package logger_test

import (
	"testing"

	"github.com/OmGuptaIND/clipcam/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			l := logger.New(logger.LoggerOpts{Level: tc.level})
			assert.True(t, l.Core().Enabled(tc.want))
			if tc.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tc.want-1))
			}
		})
	}
}

func TestNewDevelopment(t *testing.T) {
	l := logger.New(logger.LoggerOpts{Level: "debug", Development: true})
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewIsNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := logger.New(logger.LoggerOpts{Host: "native"})

	l = l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core { return zapcore.NewTee(c, core) }))
	l.Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "clipcam", logs.All()[0].LoggerName)
}
