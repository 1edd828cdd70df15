package main

import (
	"context"
	"fmt"

	"github.com/OmGuptaIND/clipcam/browser"
	"github.com/OmGuptaIND/clipcam/config"
	"github.com/OmGuptaIND/clipcam/env"
	"github.com/OmGuptaIND/clipcam/logger"
	"github.com/OmGuptaIND/clipcam/media"
	"github.com/OmGuptaIND/clipcam/native"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	host       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "clipcam",
		Short:         "Short camera clip capture sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", ".env", "config file")
	cmd.PersistentFlags().StringVar(&opts.host, "host", "", "capture host: native or browser")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level")

	cmd.AddCommand(
		newServeCmd(opts),
		newProbeCmd(opts),
		newDevicesCmd(opts),
	)

	return cmd
}

// load resolves the configuration and logger, with flags taking precedence.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := env.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if o.host != "" {
		cfg.Host = o.host
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := logger.New(logger.LoggerOpts{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Host:        cfg.Host,
	})

	return cfg, log, nil
}

// newHost builds the configured capture host. The returned func releases it.
func newHost(ctx context.Context, cfg *config.Config, log *zap.Logger) (media.Host, func(), error) {
	switch cfg.Host {
	case config.HostNative:
		host := native.NewHost(native.HostOptions{
			FFmpegPath:     cfg.FFmpegPath,
			SegmentDir:     cfg.SegmentDir,
			ShowFfmpegLogs: cfg.ShowFfmpegLogs,
			Logger:         log,
		})
		return host, func() {}, nil

	case config.HostBrowser:
		host, err := browser.NewHost(ctx, browser.HostOptions{
			ChromePath: cfg.ChromePath,
			Headless:   cfg.ChromeHeadless,
			FakeMedia:  cfg.ChromeFakeMedia,
			Display:    cfg.XvfbDisplay,
			Logger:     log,
		})
		if err != nil {
			return nil, nil, err
		}
		return host, host.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown host %q", cfg.Host)
	}
}
