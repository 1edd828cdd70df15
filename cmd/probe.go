package main

import (
	"encoding/json"
	"fmt"

	"github.com/OmGuptaIND/clipcam/prober"
	"github.com/OmGuptaIND/clipcam/session"
	"github.com/spf13/cobra"
)

func newProbeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report whether this host can record clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			host, release, err := newHost(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer release()

			capability := prober.Probe(cmd.Context(), host, log)

			out, err := json.MarshalIndent(capability, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !capability.Compatible() {
				fmt.Fprintln(cmd.ErrOrStderr(), session.UnsupportedMessage)
			}

			return nil
		},
	}
}
