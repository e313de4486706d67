// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gate tracks whether a sensor is reporting and which of its events
// should be let through.
package gate

import "time"

// Phase is the reporting state of a sensor.
type Phase uint8

const (
	Disabled Phase = iota
	Enabled
)

func (p Phase) String() string {
	if p == Enabled {
		return "enabled"
	}
	return "disabled"
}

// State is the gate of a single sensor. The zero value is disabled.
type State struct {
	phase     Phase
	threshold int64
	flush     bool
}

// Enable opens the gate. Events stamped before now+window are suppressed so
// samples latched before the device settled are not reported.
func (s *State) Enable(now int64, window time.Duration) {
	s.phase = Enabled
	s.threshold = now + window.Nanoseconds()
}

// Disable closes the gate. The threshold is kept until the next Enable.
func (s *State) Disable() {
	s.phase = Disabled
}

func (s *State) Phase() Phase {
	return s.phase
}

func (s *State) Enabled() bool {
	return s.phase == Enabled
}

// Threshold is the earliest admitted timestamp (ns).
func (s *State) Threshold() int64 {
	return s.threshold
}

// Admit reports whether an event stamped ts passes the gate.
func (s *State) Admit(ts int64) bool {
	return s.phase == Enabled && ts >= s.threshold
}

// RequestFlush arms a one-shot flush acknowledgement.
func (s *State) RequestFlush() {
	s.flush = true
}

// TakeFlush consumes a pending flush request.
func (s *State) TakeFlush() bool {
	f := s.flush
	s.flush = false
	return f
}

// FlushPending reports whether a flush is armed without consuming it.
func (s *State) FlushPending() bool {
	return s.flush
}
