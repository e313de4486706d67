// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/sensor_events/internal/config"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "sensord.config"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Debug      bool
}

// NewRootCommand creates the sensord command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sensord",
		Short: "sensord - sensor event adapter",
		Long: `Reads raw input records from a sensor device, converts them into
timestamped sensor events and publishes them over MQTT.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Debug {
				log.SetLevel(log.DebugLevel)
			}
			return config.InitGlobal(opts.ConfigPath)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", DefaultConfigPath, "path to the KEY=VALUE config file")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newProduceCommand())
	cmd.AddCommand(newDumpCommand())
	cmd.AddCommand(newConsoleCommand())
	cmd.AddCommand(newWebCommand())
	cmd.AddCommand(newDisplayCommand())
	cmd.AddCommand(newTableCommand())

	return cmd
}

// Execute runs the command tree with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
