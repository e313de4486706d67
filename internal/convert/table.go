// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package convert

import (
	"errors"
	"fmt"
	"slices"

	"github.com/relabs-tech/sensor_events/internal/event"
)

// ErrUnknownChannel is returned for channel codes missing from the table.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel maps one raw channel code to a payload slot of a sensor.
// The physical value is raw*Scale + Offset.
type Channel struct {
	Sensor event.SensorID
	Slot   int
	Scale  float32
	Offset float32
}

// Table is an immutable conversion table: channel codes to slots, and sync
// marker codes to the sensors they commit.
type Table struct {
	name     string
	channels map[uint16]Channel
	markers  map[uint16][]event.SensorID
	sensors  []event.SensorID
	width    map[event.SensorID]int
	codes    map[event.SensorID][]uint16
}

// NewTable validates and freezes a table. The maps are copied.
func NewTable(name string, channels map[uint16]Channel, markers map[uint16][]event.SensorID) (*Table, error) {
	t := &Table{
		name:     name,
		channels: make(map[uint16]Channel, len(channels)),
		markers:  make(map[uint16][]event.SensorID, len(markers)),
		width:    make(map[event.SensorID]int),
		codes:    make(map[event.SensorID][]uint16),
	}
	committed := make(map[event.SensorID]bool)
	for code, ids := range markers {
		if len(ids) == 0 {
			return nil, fmt.Errorf("table %s: marker %#x commits no sensor", name, code)
		}
		t.markers[code] = slices.Clone(ids)
		for _, id := range ids {
			if !committed[id] {
				committed[id] = true
				t.sensors = append(t.sensors, id)
			}
		}
	}
	for code, ch := range channels {
		if ch.Slot < 0 || ch.Slot >= event.PayloadSize {
			return nil, fmt.Errorf("table %s: channel %#x: slot %d out of range", name, code, ch.Slot)
		}
		if !committed[ch.Sensor] {
			return nil, fmt.Errorf("table %s: channel %#x: sensor %s has no sync marker", name, code, ch.Sensor)
		}
		t.channels[code] = ch
		t.width[ch.Sensor] = max(t.width[ch.Sensor], ch.Slot+1)
		t.codes[ch.Sensor] = append(t.codes[ch.Sensor], code)
	}
	slices.Sort(t.sensors)
	for _, codes := range t.codes {
		slices.Sort(codes)
	}
	return t, nil
}

func (t *Table) Name() string {
	return t.name
}

// Channel looks up a channel code.
func (t *Table) Channel(code uint16) (Channel, bool) {
	ch, ok := t.channels[code]
	return ch, ok
}

// Marker returns the sensors committed by a sync marker code.
func (t *Table) Marker(code uint16) ([]event.SensorID, bool) {
	ids, ok := t.markers[code]
	return ids, ok
}

// Sensors returns the sensors of the table in id order.
func (t *Table) Sensors() []event.SensorID {
	return slices.Clone(t.sensors)
}

// Width returns the number of payload slots used by a sensor.
func (t *Table) Width(sensor event.SensorID) int {
	return t.width[sensor]
}

// Codes returns the channel codes feeding a sensor, in code order.
func (t *Table) Codes(sensor event.SensorID) []uint16 {
	return slices.Clone(t.codes[sensor])
}

// Has reports whether the table commits events for sensor.
func (t *Table) Has(sensor event.SensorID) bool {
	_, ok := slices.BinarySearch(t.sensors, sensor)
	return ok
}
