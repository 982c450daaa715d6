// File: cmd/warpctl/ls.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/warplink/facade"
	"github.com/momentics/warplink/protocol"
)

func newLsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List a directory on the board's SD card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withFacade(cmd.Context(), nil, func(ctx context.Context, f *facade.Facade) error {
				entries, err := f.Client().ListDir(ctx, args[0])
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, headFmt("NAME\tSIZE\tMODIFIED\tATTR"))
				for _, e := range entries {
					name := e.Name
					if e.IsDir {
						name = keyFmt(name + "/")
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, e.Size, fatTime(e.Date, e.Time).Format(time.DateTime), attrs(e))
				}
				return w.Flush()
			})
		},
	}
}

// fatTime decodes FAT packed date and time fields.
func fatTime(d, t uint16) time.Time {
	return time.Date(1980+int(d>>9), time.Month(d>>5&0x0f), int(d&0x1f),
		int(t>>11), int(t>>5&0x3f), int(t&0x1f)*2, 0, time.Local)
}

func attrs(e protocol.DirEntry) string {
	b := []byte("----")
	if e.IsDir {
		b[0] = 'd'
	}
	if e.IsReadOnly {
		b[1] = 'r'
	}
	if e.IsHidden {
		b[2] = 'h'
	}
	if e.IsSys {
		b[3] = 's'
	}
	return string(b)
}
