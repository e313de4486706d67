// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/relabs-tech/sensor_events/internal/event"
)

// Control operations accepted on the control topic.
const (
	OpEnable  = "enable"
	OpDisable = "disable"
	OpFlush   = "flush"
	OpDelay   = "delay"
)

// ControlMessage is a request received on the control topic, e.g.
//
//	{"op":"delay","sensor":"accelerometer","delay_ms":20}
type ControlMessage struct {
	Op      string `json:"op"`
	Sensor  string `json:"sensor"`
	DelayMS int64  `json:"delay_ms,omitempty"`
}

// sessionControl is the part of sensors.Session driven by control messages.
type sessionControl interface {
	Enable(sensor event.SensorID, on bool) error
	Flush(sensor event.SensorID) error
	SetDelay(sensor event.SensorID, d time.Duration) error
}

// ParseControl decodes and checks a control message.
func ParseControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("control: bad message: %w", err)
	}
	switch m.Op {
	case OpEnable, OpDisable, OpFlush, OpDelay:
	default:
		return m, fmt.Errorf("control: unknown op %q", m.Op)
	}
	if _, err := event.ParseSensor(m.Sensor); err != nil {
		return m, fmt.Errorf("control: %w", err)
	}
	return m, nil
}

// Apply runs the request against the session.
func (m ControlMessage) Apply(s sessionControl) error {
	id, err := event.ParseSensor(m.Sensor)
	if err != nil {
		return fmt.Errorf("control: %w", err)
	}
	switch m.Op {
	case OpEnable:
		return s.Enable(id, true)
	case OpDisable:
		return s.Enable(id, false)
	case OpFlush:
		return s.Flush(id)
	case OpDelay:
		return s.SetDelay(id, time.Duration(m.DelayMS)*time.Millisecond)
	default:
		return fmt.Errorf("control: unknown op %q", m.Op)
	}
}
