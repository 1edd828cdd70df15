package config

import (
	"fmt"
	"time"
)

const (
	HostNative  = "native"
	HostBrowser = "browser"
)

// Config is the process configuration, loaded by env.Load.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	HTTPPort    int    `mapstructure:"HTTP_PORT"`
	PublicURL   string `mapstructure:"PUBLIC_URL"`

	// Host selects the capture backend: native or browser.
	Host string `mapstructure:"HOST"`

	CountdownSeconds int           `mapstructure:"COUNTDOWN_SECONDS"`
	TickInterval     time.Duration `mapstructure:"TICK_INTERVAL"`
	EncoderMimeType  string        `mapstructure:"ENCODER_MIME_TYPE"`
	OutputMimeType   string        `mapstructure:"OUTPUT_MIME_TYPE"`
	Timeslice        time.Duration `mapstructure:"TIMESLICE"`

	FFmpegPath     string `mapstructure:"FFMPEG_PATH"`
	ShowFfmpegLogs bool   `mapstructure:"SHOW_FFMPEG_LOGS"`
	SegmentDir     string `mapstructure:"SEGMENT_DIR"`

	ChromePath      string `mapstructure:"CHROME_PATH"`
	ChromeHeadless  bool   `mapstructure:"CHROME_HEADLESS"`
	ChromeFakeMedia bool   `mapstructure:"CHROME_FAKE_MEDIA"`
	XvfbDisplay     string `mapstructure:"XVFB_DISPLAY"`
}

// Defaults are applied before any file or environment override.
var Defaults = map[string]any{
	"ENVIRONMENT":       "development",
	"LOG_LEVEL":         "info",
	"HTTP_PORT":         3000,
	"PUBLIC_URL":        "http://localhost:3000",
	"HOST":              HostNative,
	"COUNTDOWN_SECONDS": 10,
	"TICK_INTERVAL":     time.Second,
	"ENCODER_MIME_TYPE": "video/webm;codecs=h264",
	"OUTPUT_MIME_TYPE":  "video/mp4",
	"TIMESLICE":         time.Second,
	"FFMPEG_PATH":       "ffmpeg",
	"SHOW_FFMPEG_LOGS":  false,
	"SEGMENT_DIR":       "recordings",
	"CHROME_PATH":       "chromium",
	"CHROME_HEADLESS":   true,
	"CHROME_FAKE_MEDIA": false,
	"XVFB_DISPLAY":      "",
}

func (c *Config) Validate() error {
	if c.Host != HostNative && c.Host != HostBrowser {
		return fmt.Errorf("unknown host %q, expected %s or %s", c.Host, HostNative, HostBrowser)
	}
	if c.CountdownSeconds <= 0 {
		return fmt.Errorf("countdown must be positive, got %d", c.CountdownSeconds)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.Timeslice <= 0 {
		return fmt.Errorf("timeslice must be positive, got %s", c.Timeslice)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
