// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"encoding/binary"
	"strconv"
)

// Linux input constants used by the accelerometer nodes.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvAbs = 0x03

	SynReport  = 0x00
	SynDropped = 0x03

	AbsX  = 0x00
	AbsY  = 0x01
	AbsZ  = 0x02
	AbsRX = 0x03
	AbsRY = 0x04
	AbsRZ = 0x05
)

// wordSize is sizeof(long) on the running kernel ABI.
const wordSize = strconv.IntSize / 8

// EventSize is sizeof(struct input_event): a timeval followed by type, code and value.
const EventSize = 2*wordSize + 8

// EvdevDecoder decodes native struct input_event records.
type EvdevDecoder struct{}

func (EvdevDecoder) FrameSize() int  { return EventSize }
func (EvdevDecoder) MaxRecords() int { return 1 }

func (EvdevDecoder) Decode(frame []byte, dst []RawRecord) []RawRecord {
	var sec, usec int64
	if wordSize == 8 {
		sec = int64(binary.NativeEndian.Uint64(frame[0:8]))
		usec = int64(binary.NativeEndian.Uint64(frame[8:16]))
	} else {
		sec = int64(int32(binary.NativeEndian.Uint32(frame[0:4])))
		usec = int64(int32(binary.NativeEndian.Uint32(frame[4:8])))
	}
	off := 2 * wordSize
	rec := RawRecord{
		Type:  binary.NativeEndian.Uint16(frame[off:]),
		Code:  binary.NativeEndian.Uint16(frame[off+2:]),
		Value: int32(binary.NativeEndian.Uint32(frame[off+4:])),
		Time:  sec*1_000_000_000 + usec*1_000,
	}
	switch rec.Type {
	case EvAbs:
		rec.Kind = AxisSample
	case EvSyn:
		rec.Kind = SyncMarker
	}
	return append(dst, rec)
}

// AppendEvdev appends one struct input_event to dst. ts is in nanoseconds.
func AppendEvdev(dst []byte, typ, code uint16, value int32, ts int64) []byte {
	sec := ts / 1_000_000_000
	usec := (ts % 1_000_000_000) / 1_000
	if wordSize == 8 {
		dst = binary.NativeEndian.AppendUint64(dst, uint64(sec))
		dst = binary.NativeEndian.AppendUint64(dst, uint64(usec))
	} else {
		dst = binary.NativeEndian.AppendUint32(dst, uint32(sec))
		dst = binary.NativeEndian.AppendUint32(dst, uint32(usec))
	}
	dst = binary.NativeEndian.AppendUint16(dst, typ)
	dst = binary.NativeEndian.AppendUint16(dst, code)
	return binary.NativeEndian.AppendUint32(dst, uint32(value))
}
