// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "errors"

var (
	// ErrInvalidArgument is returned by ReadEvents for an empty batch buffer
	// and by SetDelay for a negative delay.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownSensor is returned for sensors the session's table does not
	// commit events for.
	ErrUnknownSensor = errors.New("unknown sensor")
)
