// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"

	"github.com/relabs-tech/sensor_events/internal/event"
)

// metaTopic is the subtopic of meta events.
const metaTopic = "meta"

// Payload is the JSON form of an event on MQTT, the websocket and dump output.
type Payload struct {
	Session   string    `json:"session"`
	Sensor    string    `json:"sensor"`
	SensorID  int32     `json:"sensor_id"`
	Kind      string    `json:"kind"`
	Timestamp int64     `json:"timestamp"` // ns, CLOCK_MONOTONIC
	Values    []float32 `json:"values,omitempty"`
	Steps     *uint64   `json:"steps,omitempty"` // step counter total
	What      string    `json:"what,omitempty"`
}

// NewPayload converts ev, keeping the first width payload slots of data
// events. Meta events name the sensor they refer to.
func NewPayload(session string, ev event.Event, width int) Payload {
	p := Payload{
		Session:   session,
		Kind:      ev.Kind.String(),
		Timestamp: ev.Timestamp,
	}
	if ev.Kind == event.KindMeta {
		p.Sensor = ev.Meta.Sensor.String()
		p.SensorID = int32(ev.Meta.Sensor)
		p.What = ev.Meta.What.String()
		return p
	}
	width = min(max(width, 0), event.PayloadSize)
	p.Sensor = ev.Sensor.String()
	p.SensorID = int32(ev.Sensor)
	p.Values = append([]float32(nil), ev.Data[:width]...)
	if ev.Sensor == event.StepCounter {
		steps := ev.StepCount()
		p.Steps = &steps
	}
	return p
}

func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// EventTopic is <base>/<sensor> for data and <base>/meta for meta events.
func EventTopic(base string, ev event.Event) string {
	if ev.Kind == event.KindMeta {
		return base + "/" + metaTopic
	}
	return base + "/" + ev.Sensor.String()
}
