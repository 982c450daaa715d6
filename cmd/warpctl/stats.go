// File: cmd/warpctl/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/warplink/facade"
)

func newStatsCmd(o *options) *cobra.Command {
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Bring the interface up once and dump counters and probes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withFacade(cmd.Context(), nil, func(ctx context.Context, f *facade.Facade) error {
				if settle > 0 {
					select {
					case <-time.After(settle):
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				f.PublishMetrics()
				stats := f.Control().Stats()
				keys := make([]string, 0, len(stats))
				for k := range stats {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				info := f.Interface().DriverInfo()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%s)\n", headFmt("driver:"), info.Driver, info.Version, info.BusInfo)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", keyFmt(k+":"), stats[k])
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", 0, "Wait this long before sampling")
	return cmd
}
