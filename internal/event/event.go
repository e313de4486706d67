// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package event

// Version tags every event with the layout revision of Event.
const Version = 1

// PayloadSize is the number of float slots carried by one event.
const PayloadSize = 16

// Kind distinguishes sensor data from meta events.
type Kind uint8

const (
	KindData Kind = iota
	KindMeta
)

func (k Kind) String() string {
	if k == KindMeta {
		return "meta"
	}
	return "data"
}

// MetaWhat identifies the meta event.
type MetaWhat uint8

const (
	MetaFlushComplete MetaWhat = 1
)

func (w MetaWhat) String() string {
	if w == MetaFlushComplete {
		return "flush_complete"
	}
	return "unknown"
}

// Meta is set on KindMeta events.
type Meta struct {
	What   MetaWhat `json:"what"`
	Sensor SensorID `json:"sensor"`
}

// Event is a single normalized sensor event.
type Event struct {
	Version   int32                `json:"version"`
	Sensor    SensorID             `json:"sensor"`
	Kind      Kind                 `json:"kind"`
	Timestamp int64                `json:"timestamp"` // ns, CLOCK_MONOTONIC
	Data      [PayloadSize]float32 `json:"data"`
	Meta      Meta                 `json:"meta"`
}

// StepCount joins the four 16-bit words of a step counter event, most
// significant first. The words are reported unscaled in Data[0:4].
func (e Event) StepCount() uint64 {
	var n uint64
	for _, w := range e.Data[:4] {
		n = n<<16 | uint64(w)&0xffff
	}
	return n
}

// FlushComplete builds the meta event acknowledging a flush of sensor.
func FlushComplete(sensor SensorID) Event {
	return Event{
		Version: Version,
		Kind:    KindMeta,
		Meta: Meta{
			What:   MetaFlushComplete,
			Sensor: sensor,
		},
	}
}
