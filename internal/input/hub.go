// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"encoding/binary"
	"fmt"
)

// Sensor hub frame layout:
//
//	[0]     sensor type (hub sensor id)
//	[1]     payload length in bytes
//	[2:10]  timestamp, big-endian int64 nanoseconds
//	[10:]   payload, big-endian fields laid out per sensor type
//
// A kernel hub node stamps frames with the host CLOCK_MONOTONIC, the clock
// the rest of the pipeline runs on. A hub on a UART stamps them with its own
// free-running clock; SerialHub maps those onto CLOCK_MONOTONIC before the
// frames reach the decoder.
const (
	HubFrameSize   = 64
	hubHeaderSize  = 10
	HubMaxPayload  = HubFrameSize - hubHeaderSize
	hubChannelBits = 8
)

type field uint8

const (
	i8 field = iota
	u8
	i16
	u16
	i32
)

func (f field) size() int {
	switch f {
	case i8, u8:
		return 1
	case i16, u16:
		return 2
	default:
		return 4
	}
}

func (f field) get(b []byte) int32 {
	switch f {
	case i8:
		return int32(int8(b[0]))
	case u8:
		return int32(b[0])
	case i16:
		return int32(int16(binary.BigEndian.Uint16(b)))
	case u16:
		return int32(binary.BigEndian.Uint16(b))
	default:
		return int32(binary.BigEndian.Uint32(b))
	}
}

func (f field) put(b []byte, v int32) {
	switch f {
	case i8, u8:
		b[0] = byte(v)
	case i16, u16:
		binary.BigEndian.PutUint16(b, uint16(v))
	default:
		binary.BigEndian.PutUint32(b, uint32(v))
	}
}

func repeat(f field, n int) []field {
	out := make([]field, n)
	for i := range out {
		out[i] = f
	}
	return out
}

// hubLayouts maps a hub sensor type to the fields of its payload.
var hubLayouts = map[uint8][]field{
	0:  repeat(i16, 3),  // accelerometer
	1:  repeat(i16, 3),  // gyroscope
	2:  {i32},           // pressure
	3:  repeat(i16, 3),  // magnetometer
	4:  repeat(i16, 3),  // orientation: azimuth, pitch, roll
	5:  {i16},           // temperature
	6:  {u16},           // light
	7:  repeat(i16, 3),  // linear acceleration
	8:  repeat(i16, 4),  // rotation vector
	9:  repeat(i16, 3),  // gravity
	10: {i8},            // display rotate
	11: {u8},            // display brightness
	12: {i8},            // dock
	13: {i8},            // proximity
	14: {i8},            // flat up
	15: {i8},            // flat down
	16: {i8},            // stowed
	17: {i16},           // camera activate
	18: {i8},            // nfc
	19: repeat(i8, 4),   // ir gesture: event, gesture, direction, motion
	20: repeat(u16, 10), // ir raw: tr/bl/br/bb high, tr/bl/br/bb low, ambient high/low
	21: {i16},           // significant motion
	22: {i16},           // step detector
	23: repeat(u16, 4),  // step counter, most significant word first
	24: repeat(i16, 6),  // uncalibrated gyroscope + bias
	25: repeat(i16, 6),  // uncalibrated magnetometer + bias
	26: {u8},            // ir object
	27: {i8},            // chopchop
	28: repeat(i16, 4),  // 6-axis quaternion
	29: repeat(i16, 4),  // 9-axis quaternion
	30: repeat(i32, 3),  // lift: distance, rotation, gravity diff
}

var hubMaxRecords = func() int {
	n := 0
	for _, l := range hubLayouts {
		n = max(n, len(l))
	}
	return n + 1
}()

// HubChannel returns the channel code of field index of a hub sensor type.
func HubChannel(sensor uint8, index int) uint16 {
	return uint16(sensor)<<hubChannelBits | uint16(index)
}

// HubDecoder decodes sensor hub frames. Each frame expands to one AxisSample
// per payload field followed by a SyncMarker coded with the sensor type.
type HubDecoder struct{}

func (HubDecoder) FrameSize() int  { return HubFrameSize }
func (HubDecoder) MaxRecords() int { return hubMaxRecords }

func (HubDecoder) Decode(frame []byte, dst []RawRecord) []RawRecord {
	typ := frame[0]
	ts := int64(binary.BigEndian.Uint64(frame[2:hubHeaderSize]))
	layout, ok := hubLayouts[typ]
	length := int(frame[1])
	if !ok || length > HubMaxPayload || length < layoutSize(layout) {
		return append(dst, RawRecord{Kind: Unknown, Type: uint16(typ), Code: uint16(length), Time: ts})
	}

	payload := frame[hubHeaderSize : hubHeaderSize+length]
	off := 0
	for i, f := range layout {
		dst = append(dst, RawRecord{
			Kind:  AxisSample,
			Type:  uint16(typ),
			Code:  HubChannel(typ, i),
			Value: f.get(payload[off:]),
			Time:  ts,
		})
		off += f.size()
	}
	return append(dst, RawRecord{Kind: SyncMarker, Type: uint16(typ), Code: uint16(typ), Time: ts})
}

func layoutSize(layout []field) int {
	n := 0
	for _, f := range layout {
		n += f.size()
	}
	return n
}

// HubFields returns the number of payload fields of a hub sensor type.
func HubFields(sensor uint8) int {
	return len(hubLayouts[sensor])
}

// EncodeHubFrame builds one hub frame. It is used by simulators and replay
// tools that feed recorded samples back through a hub handle.
func EncodeHubFrame(sensor uint8, ts int64, values ...int32) ([]byte, error) {
	layout, ok := hubLayouts[sensor]
	if !ok {
		return nil, fmt.Errorf("hub: unknown sensor type %d", sensor)
	}
	if len(values) != len(layout) {
		return nil, fmt.Errorf("hub: sensor type %d takes %d values, got %d", sensor, len(layout), len(values))
	}
	frame := make([]byte, HubFrameSize)
	frame[0] = sensor
	frame[1] = byte(layoutSize(layout))
	binary.BigEndian.PutUint64(frame[2:hubHeaderSize], uint64(ts))
	off := hubHeaderSize
	for i, f := range layout {
		f.put(frame[off:], values[i])
		off += f.size()
	}
	return frame, nil
}
