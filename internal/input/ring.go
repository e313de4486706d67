// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// Ring buffers decoded records between reads of a device handle.
//
// Records stay in the ring until consumed with Next, so a reader that stops
// early picks them up again on its next pass.
type Ring struct {
	handle  io.Reader
	dec     Decoder
	records []RawRecord
	head    int
	count   int
	raw     []byte
	pend    int // bytes of an incomplete frame at the start of raw
	scratch []RawRecord
}

// NewRing creates a ring holding up to capacity records read from handle.
func NewRing(handle io.Reader, dec Decoder, capacity int) (*Ring, error) {
	if capacity < dec.MaxRecords() {
		return nil, fmt.Errorf("ring capacity %d is smaller than one frame (%d records)", capacity, dec.MaxRecords())
	}
	return &Ring{
		handle:  handle,
		dec:     dec,
		records: make([]RawRecord, capacity),
		raw:     make([]byte, (capacity/dec.MaxRecords())*dec.FrameSize()),
		scratch: make([]RawRecord, 0, dec.MaxRecords()),
	}, nil
}

// Len returns the number of buffered records.
func (r *Ring) Len() int {
	return r.count
}

// Fill performs one read on the handle for as many whole frames as fit in the
// free space and returns the number of records added. Zero means no data was
// available or the ring is full.
//
// A read ending mid-frame still buffers the whole frames before it; the
// trailing bytes are kept and completed by the next Fill, and the call
// reports ErrPartialRecord.
func (r *Ring) Fill() (int, error) {
	frames := (len(r.records) - r.count) / r.dec.MaxRecords()
	if frames == 0 {
		return 0, nil
	}
	size := r.dec.FrameSize()

	n, err := r.handle.Read(r.raw[r.pend : frames*size])
	if err != nil && (errors.Is(err, io.EOF) || errors.Is(err, unix.EAGAIN)) {
		err = nil
	}
	total := r.pend + n

	added := 0
	off := 0
	for ; off+size <= total; off += size {
		r.scratch = r.dec.Decode(r.raw[off:off+size], r.scratch[:0])
		for _, rec := range r.scratch {
			r.records[(r.head+r.count)%len(r.records)] = rec
			r.count++
			added++
		}
	}
	r.pend = copy(r.raw, r.raw[off:total])

	if err != nil {
		return added, &IOError{Op: "fill", Err: err}
	}
	if n > 0 && r.pend > 0 {
		return added, &IOError{Op: "fill", Err: fmt.Errorf("%w: read %d bytes, frame is %d, %d bytes carried", ErrPartialRecord, n, size, r.pend)}
	}
	return added, nil
}

// Peek returns the oldest buffered record without consuming it.
func (r *Ring) Peek() (RawRecord, bool) {
	if r.count == 0 {
		return RawRecord{}, false
	}
	return r.records[r.head], true
}

// Next consumes the oldest buffered record.
func (r *Ring) Next() {
	if r.count == 0 {
		return
	}
	r.head = (r.head + 1) % len(r.records)
	r.count--
}

// NextRecord pops the oldest buffered record.
func (r *Ring) NextRecord() (RawRecord, bool) {
	rec, ok := r.Peek()
	if ok {
		r.Next()
	}
	return rec, ok
}
