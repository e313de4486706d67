// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"encoding/binary"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// SerialHub is a sensor hub attached over a UART. A UART delivers a byte
// stream, so reads are reassembled into whole hub frames.
//
// Frames on a UART carry the hub's own clock. The offset between that clock
// and the host monotonic clock is taken at the first frame, and every frame
// is restamped with it before decoding.
type SerialHub struct {
	port   io.ReadWriteCloser
	now    func() int64
	synced bool
	offset int64
}

// OpenSerial opens a serial port carrying hub frames.
func OpenSerial(path string, baud uint) (*SerialHub, error) {
	opts := serial.OpenOptions{
		PortName:              path,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}
	log.Printf("input: hub serial port opened on %s at %d baud", path, baud)
	return NewSerialHub(port, Monotonic), nil
}

// NewSerialHub wraps an already open byte stream. now supplies the host
// clock; nil means Monotonic.
func NewSerialHub(port io.ReadWriteCloser, now func() int64) *SerialHub {
	if now == nil {
		now = Monotonic
	}
	return &SerialHub{port: port, now: now}
}

// Read fills p with exactly one hub frame, restamped to the host clock.
func (s *SerialHub) Read(p []byte) (int, error) {
	if len(p) < HubFrameSize {
		return 0, nil
	}
	n, err := io.ReadFull(s.port, p[:HubFrameSize])
	if n < HubFrameSize {
		return n, err
	}
	ts := int64(binary.BigEndian.Uint64(p[2:hubHeaderSize]))
	if !s.synced {
		s.offset = s.now() - ts
		s.synced = true
		log.Debugf("input: hub clock offset %d ns", s.offset)
	}
	binary.BigEndian.PutUint64(p[2:hubHeaderSize], uint64(ts+s.offset))
	return n, err
}

func (s *SerialHub) Close() error {
	return s.port.Close()
}
