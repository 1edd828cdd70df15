package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/OmGuptaIND/clipcam/prober"
	"github.com/spf13/cobra"
)

func newDevicesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture and playback devices",
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

			raw, err := host.EnumerateDevices(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tID\tLABEL")
			for _, d := range prober.Descriptors(raw) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Kind, d.ID, d.DisplayLabel(true))
			}
			return w.Flush()
		},
	}
}
