// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cli

import (
	"github.com/spf13/cobra"

	"github.com/relabs-tech/sensor_events/internal/app"
	"github.com/relabs-tech/sensor_events/internal/config"
	"github.com/relabs-tech/sensor_events/internal/convert"
)

func newProduceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "produce",
		Short: "Read the sensor device and publish events over MQTT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return app.RunProducer(ctx)
		},
	}
}

func newDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Read the sensor device and print events as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return app.RunDump(ctx, cmd.OutOrStdout())
		},
	}
}

func newConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Print events received from the MQTT broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return app.RunConsoleMQTT(ctx)
		},
	}
}

func newWebCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Serve latest and recent events over HTTP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return app.RunWeb(ctx)
		},
	}
}

func newDisplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "display",
		Short: "Show the latest values of one sensor on an SSD1306 display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return app.RunDisplay(ctx)
		},
	}
}

func newTableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the active conversion table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := app.LoadTable(config.Get())
			if err != nil {
				return err
			}
			data, err := convert.MarshalTable(table)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
