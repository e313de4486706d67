// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/sensor_events/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Errorf("sensord: %v", err)
		os.Exit(1)
	}
}
