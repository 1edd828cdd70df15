package main

import (
	"context"
	"sync"
	"syscall"

	"github.com/OmGuptaIND/clipcam/api"
	"github.com/OmGuptaIND/clipcam/media"
	"github.com/OmGuptaIND/clipcam/pkg"
	"github.com/OmGuptaIND/clipcam/recorder"
	"github.com/OmGuptaIND/clipcam/session"
	"github.com/OmGuptaIND/clipcam/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve capture sessions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			if port != 0 {
				cfg.HTTPPort = port
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			host, release, err := newHost(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer release()

			appStore := store.NewStore(store.StoreOptions{BaseURL: cfg.PublicURL})
			defer appStore.Close()

			var wg sync.WaitGroup

			apiServer := api.NewApiServer(ctx, api.ApiServerOptions{
				Port:  cfg.HTTPPort,
				Wg:    &wg,
				Store: appStore,
				NewSession: func() *session.Session {
					return session.NewSession(session.NewSessionOptions{
						Host:             host,
						Store:            appStore,
						Encoder:          media.EncoderConfig{MimeType: cfg.EncoderMimeType, Timeslice: cfg.Timeslice},
						OutputMimeType:   cfg.OutputMimeType,
						CountdownSeconds: cfg.CountdownSeconds,
						TickInterval:     cfg.TickInterval,
						NewTicker:        recorder.NewTimeTicker,
						OnStartRecord: func(id string) {
							log.Info("recording started", zap.String("session", id))
						},
						OnStopRecord: func(id, handle string) {
							log.Info("recording available", zap.String("session", id), zap.String("handle", handle))
						},
						Logger: log,
					})
				},
				Logger: log,
			})

			<-apiServer.Start()

			sig := pkg.HandleSignal()

			go func() {
				for val := range sig {
					if val == syscall.SIGINT || val == syscall.SIGTERM {
						log.Info("shutting down", zap.Stringer("signal", val))
						cancel()
						return
					}
				}
			}()

			<-ctx.Done()

			if err := apiServer.Close(); err != nil {
				log.Error("failed to close api server", zap.Error(err))
			}

			wg.Wait()

			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "http port, overrides HTTP_PORT")

	return cmd
}
