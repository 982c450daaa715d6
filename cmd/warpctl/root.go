// File: cmd/warpctl/root.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/momentics/warplink/control"
	"github.com/momentics/warplink/facade"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	okFmt   = color.New(color.FgGreen).SprintFunc()
	keyFmt  = color.New(color.FgCyan).SprintFunc()
	headFmt = color.New(color.FgBlue, color.Bold).SprintFunc()
	warnFmt = color.New(color.FgYellow).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
)

// options are the global flags shared by every subcommand.
type options struct {
	configPath string
	simulate   bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "warpctl",
		Short: "Control the warp coprocessor card",
		Long: `warpctl talks to the coprocessor card through its shared memory window.

It runs the ethernet interface daemon, issues diagnostic commands and lists
the card's storage. Use --simulate to run against an in-process board.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&o.simulate, "simulate", false, "Use the simulated board instead of /dev/uioN")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newNetdCmd(o),
		newDiagCmd(o),
		newLsCmd(o),
		newStatsCmd(o),
	)
	return root
}

// loadConfig reads --config over the defaults and applies flag overrides.
func (o *options) loadConfig() (control.Config, error) {
	cfg := control.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = control.LoadConfig(o.configPath); err != nil {
			return cfg, err
		}
	}
	if o.simulate {
		cfg.Simulate = true
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, cfg.Validate()
}

// withFacade builds and starts the stack, runs fn and shuts everything down.
func (o *options) withFacade(ctx context.Context, edit func(*control.Config), fn func(ctx context.Context, f *facade.Facade) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if edit != nil {
		edit(&cfg)
	}
	f, err := facade.New(cfg, nil)
	if err != nil {
		return err
	}
	defer f.Shutdown()
	if err := f.Start(ctx); err != nil {
		return err
	}
	return fn(ctx, f)
}
