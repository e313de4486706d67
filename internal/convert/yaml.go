// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package convert

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/sensor_events/internal/event"
)

// tableFile is the on-disk form of a conversion table:
//
//	name: board_accel
//	markers:
//	  - code: 0
//	    sensors: [accelerometer]
//	channels:
//	  - code: 0
//	    sensor: accelerometer
//	    slot: 0
//	    scale: 0.009576807
type tableFile struct {
	Name     string        `yaml:"name"`
	Markers  []markerEntry `yaml:"markers"`
	Channels []channelLine `yaml:"channels"`
}

type markerEntry struct {
	Code    uint16   `yaml:"code"`
	Sensors []string `yaml:"sensors,flow"`
}

type channelLine struct {
	Code   uint16  `yaml:"code"`
	Sensor string  `yaml:"sensor"`
	Slot   int     `yaml:"slot"`
	Scale  float32 `yaml:"scale"`
	Offset float32 `yaml:"offset,omitempty"`
}

// LoadTable reads a conversion table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversion table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable parses a YAML conversion table.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("conversion table: %w", err)
	}
	if f.Name == "" {
		f.Name = "custom"
	}

	markers := make(map[uint16][]event.SensorID, len(f.Markers))
	for _, m := range f.Markers {
		for _, name := range m.Sensors {
			id, err := event.ParseSensor(name)
			if err != nil {
				return nil, fmt.Errorf("conversion table %s: marker %d: %w", f.Name, m.Code, err)
			}
			markers[m.Code] = append(markers[m.Code], id)
		}
	}

	channels := make(map[uint16]Channel, len(f.Channels))
	for _, c := range f.Channels {
		id, err := event.ParseSensor(c.Sensor)
		if err != nil {
			return nil, fmt.Errorf("conversion table %s: channel %d: %w", f.Name, c.Code, err)
		}
		if _, dup := channels[c.Code]; dup {
			return nil, fmt.Errorf("conversion table %s: channel %d listed twice", f.Name, c.Code)
		}
		channels[c.Code] = Channel{Sensor: id, Slot: c.Slot, Scale: c.Scale, Offset: c.Offset}
	}
	return NewTable(f.Name, channels, markers)
}

// MarshalTable renders t in the format read by ParseTable, ordered by code.
func MarshalTable(t *Table) ([]byte, error) {
	f := tableFile{Name: t.name}
	for _, code := range slices.Sorted(maps.Keys(t.markers)) {
		m := markerEntry{Code: code}
		for _, id := range t.markers[code] {
			m.Sensors = append(m.Sensors, id.String())
		}
		f.Markers = append(f.Markers, m)
	}
	for _, code := range slices.Sorted(maps.Keys(t.channels)) {
		ch := t.channels[code]
		f.Channels = append(f.Channels, channelLine{
			Code:   code,
			Sensor: ch.Sensor.String(),
			Slot:   ch.Slot,
			Scale:  ch.Scale,
			Offset: ch.Offset,
		})
	}
	return yaml.Marshal(f)
}
