// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package convert

import (
	"fmt"

	"github.com/relabs-tech/sensor_events/internal/event"
)

// Accumulator holds the latest converted value of every channel between sync
// markers. Values are never reset, so a snapshot always reflects the last
// known state of the sensor.
type Accumulator struct {
	table *Table
	slots map[event.SensorID]*[event.PayloadSize]float32
}

func NewAccumulator(table *Table) *Accumulator {
	a := &Accumulator{
		table: table,
		slots: make(map[event.SensorID]*[event.PayloadSize]float32),
	}
	for _, id := range table.Sensors() {
		a.slots[id] = new([event.PayloadSize]float32)
	}
	return a
}

// Apply converts raw and stores it in the channel's slot.
func (a *Accumulator) Apply(code uint16, raw int32) error {
	ch, ok := a.table.Channel(code)
	if !ok {
		return fmt.Errorf("%w: code %#x (raw %d)", ErrUnknownChannel, code, raw)
	}
	a.slots[ch.Sensor][ch.Slot] = float32(raw)*ch.Scale + ch.Offset
	return nil
}

// Snapshot copies the current slots of sensor into a data event.
func (a *Accumulator) Snapshot(sensor event.SensorID, ts int64) event.Event {
	ev := event.Event{
		Version:   event.Version,
		Sensor:    sensor,
		Kind:      event.KindData,
		Timestamp: ts,
	}
	if slots, ok := a.slots[sensor]; ok {
		ev.Data = *slots
	}
	return ev
}
