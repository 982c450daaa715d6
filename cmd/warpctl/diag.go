// File: cmd/warpctl/diag.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/facade"
)

func newDiagCmd(o *options) *cobra.Command {
	diag := &cobra.Command{
		Use:   "diag",
		Short: "Board diagnostics and settings",
	}

	run := func(cmd *cobra.Command, fn func(ctx context.Context, f *facade.Facade) error) error {
		return o.withFacade(cmd.Context(), nil, fn)
	}

	diag.AddCommand(&cobra.Command{
		Use:   "arminfo",
		Short: "Show the coprocessor identification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, f *facade.Facade) error {
				info, err := f.Client().ARMInfo(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %#08x\n%s %#04x\n",
					keyFmt("cpu revision:"), info.CPURevID, keyFmt("hal version: "), info.HALVersion)
				return nil
			})
		},
	})

	diag.AddCommand(&cobra.Command{
		Use:   "turbo <level>",
		Short: "Select the CPU turbo level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.ParseUint(args[0], 0, 32)
			if err != nil {
				return badArg("turbo level", err)
			}
			return run(cmd, func(ctx context.Context, f *facade.Facade) error {
				if err := f.Client().SetCPUTurbo(ctx, uint32(level)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okFmt("turbo set to"), level)
				return nil
			})
		},
	})

	diag.AddCommand(&cobra.Command{
		Use:   "kick <nr>",
		Short: "Select the Kickstart ROM for the next reset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nr, err := strconv.ParseUint(args[0], 0, 8)
			if err != nil {
				return badArg("kickstart number", err)
			}
			return run(cmd, func(ctx context.Context, f *facade.Facade) error {
				if err := f.Client().SelectKickstart(ctx, uint8(nr)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okFmt("kickstart selected:"), nr)
				return nil
			})
		},
	})

	var dbgType uint8
	dbg := &cobra.Command{
		Use:   "dbg <message>",
		Short: "Print a message on the board's debug console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, f *facade.Facade) error {
				return f.Client().DebugMessage(ctx, dbgType, args[0])
			})
		},
	}
	dbg.Flags().Uint8Var(&dbgType, "type", 0, "Message type")
	diag.AddCommand(dbg)

	diag.AddCommand(&cobra.Command{
		Use:   "mouse-res [resolution]",
		Short: "Show or set the USB mouse resolution",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var set *uint16
			if len(args) == 1 {
				v, err := strconv.ParseUint(args[0], 0, 16)
				if err != nil {
					return badArg("resolution", err)
				}
				r := uint16(v)
				set = &r
			}
			return run(cmd, func(ctx context.Context, f *facade.Facade) error {
				if set != nil {
					if err := f.Client().SetHIDMouseRes(ctx, *set); err != nil {
						return err
					}
				}
				res, err := f.Client().HIDMouseRes(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), keyFmt("mouse resolution:"), res)
				return nil
			})
		},
	})

	diag.AddCommand(&cobra.Command{
		Use:   "tz <shift>",
		Short: "Set the real time clock time zone shift, e.g. 2h or -30m",
		// West of UTC the shift starts with '-', which flag parsing would
		// take for a shorthand flag.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			arg, err := trailingArg(cmd, args)
			if err != nil {
				return err
			}
			if arg == "-h" || arg == "--help" {
				return cmd.Help()
			}
			shift, err := time.ParseDuration(arg)
			if err != nil {
				return badArg("time zone shift", err)
			}
			return run(cmd, func(ctx context.Context, f *facade.Facade) error {
				if err := f.Client().SetTimeZoneShift(ctx, shift); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okFmt("time zone shift set to"), shift)
				return nil
			})
		},
	})

	return diag
}

// trailingArg parses the flags of a command with flag parsing disabled and
// returns its single positional argument, which is taken as the last one and
// may start with '-'. A "--" right before it is dropped.
func trailingArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: accepts 1 arg(s), received 0", api.ErrInvalidArgument)
	}
	arg, rest := args[len(args)-1], args[:len(args)-1]
	if n := len(rest); n > 0 && rest[n-1] == "--" {
		rest = rest[:n-1]
	}
	flags := cmd.Flags()
	if err := flags.Parse(rest); err != nil {
		return "", fmt.Errorf("%w: %w", api.ErrInvalidArgument, err)
	}
	if flags.NArg() != 0 {
		return "", fmt.Errorf("%w: accepts 1 arg(s), received %d", api.ErrInvalidArgument, flags.NArg()+1)
	}
	return arg, nil
}

func badArg(what string, err error) error {
	return fmt.Errorf("%s: %w: %w", what, api.ErrInvalidArgument, err)
}
