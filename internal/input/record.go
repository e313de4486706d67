// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import "errors"

// Kind classifies a decoded raw record.
type Kind uint8

const (
	Unknown Kind = iota
	AxisSample
	SyncMarker
)

func (k Kind) String() string {
	switch k {
	case AxisSample:
		return "axis"
	case SyncMarker:
		return "sync"
	default:
		return "unknown"
	}
}

// RawRecord is one decoded record from a raw event handle.
type RawRecord struct {
	Kind  Kind
	Type  uint16 // kernel event type, or hub sensor type
	Code  uint16 // channel code for samples, marker code for syncs
	Value int32
	Time  int64 // ns
}

// ErrPartialRecord is returned when a read ends in the middle of a frame.
var ErrPartialRecord = errors.New("partial record")

// IOError reports a failed read or write on a device handle.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return "input " + e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Decoder turns fixed-size frames read from a handle into raw records.
type Decoder interface {
	// FrameSize is the number of bytes per frame.
	FrameSize() int
	// MaxRecords is the largest number of records a single frame decodes to.
	MaxRecords() int
	// Decode appends the records of frame to dst.
	Decode(frame []byte, dst []RawRecord) []RawRecord
}
