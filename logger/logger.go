package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOpts configures the process logger. The zero value logs JSON at info.
type LoggerOpts struct {
	// Level is a zap level name. Unknown names fall back to info.
	Level string

	// Development switches to the human readable console encoder.
	Development bool

	// Host names the capture backend and is attached to every entry.
	Host string
}

// New builds the root logger for clipcam.
func New(opts LoggerOpts) *zap.Logger {
	config := zap.NewProductionConfig()
	if opts.Development {
		config = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if opts.Level == "" || err != nil {
		level = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	if opts.Host != "" {
		config.InitialFields = map[string]interface{}{"host": opts.Host}
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger.Named("clipcam")
}
