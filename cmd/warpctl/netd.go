// File: cmd/warpctl/netd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/warplink/control"
	"github.com/momentics/warplink/facade"
)

func newNetdCmd(o *options) *cobra.Command {
	var (
		useTap  bool
		tapName string
		runFor  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "netd",
		Short: "Run the ethernet interface",
		Long: `Bring the card's ethernet interface up and keep it running until
interrupted. With --tap, frames are bridged to a kernel TAP device.

Examples:
  warpctl netd --tap
  warpctl --simulate netd --for 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			edit := func(cfg *control.Config) {
				if cmd.Flags().Changed("tap") {
					cfg.TAP.Enabled = useTap
				}
				if tapName != "" {
					cfg.TAP.Name = tapName
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if runFor > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runFor)
				defer cancel()
			}
			return o.withFacade(ctx, edit, func(ctx context.Context, f *facade.Facade) error {
				nif := f.Interface()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s up, mac %s\n", okFmt("●"), nif.Name(), nif.HardwareAddr())

				errc := make(chan error, 1)
				go func() { errc <- f.Wait() }()
				select {
				case <-ctx.Done():
				case err := <-errc:
					if err != nil {
						return err
					}
				}
				s := nif.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s down: rx %d tx %d dropped %d\n",
					warnFmt("●"), nif.Name(), s.RxPackets, s.TxPackets, s.RxDropped+s.TxDropped)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&useTap, "tap", false, "Bridge frames to a TAP device")
	cmd.Flags().StringVar(&tapName, "tap-name", "", "TAP interface name")
	cmd.Flags().DurationVar(&runFor, "for", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}
