// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors turns the raw records of one event handle into batches of
// normalized sensor events.
package sensors

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/sensor_events/internal/convert"
	"github.com/relabs-tech/sensor_events/internal/event"
	"github.com/relabs-tech/sensor_events/internal/gate"
	"github.com/relabs-tech/sensor_events/internal/input"
)

// DefaultIgnoreWindow is how long samples are discarded after a sensor is
// enabled.
const DefaultIgnoreWindow = 10 * time.Millisecond

// Source yields raw records in arrival order. *input.Ring implements it.
type Source interface {
	Fill() (int, error)
	Peek() (input.RawRecord, bool)
	Next()
}

// Seeder reads the current absolute value of a channel from the hardware.
type Seeder interface {
	AbsValue(code uint16) (int32, error)
}

// Controller writes the enable and poll delay attributes of a sensor.
type Controller interface {
	SetEnabled(sensor event.SensorID, on bool) error
	SetDelay(sensor event.SensorID, ms int64) error
}

// Config wires a Session. Source and Table are required.
type Config struct {
	Source       Source
	Table        *convert.Table
	Seeder       Seeder     // optional; enable then reuses the last known values
	Control      Controller // optional; nil skips attribute writes
	IgnoreWindow time.Duration
	Now          func() int64 // ns; defaults to input.Monotonic
}

type sensorState struct {
	gate gate.State
	seed bool // synthetic snapshot due on the next read
}

// Session batches the events of every sensor in its conversion table.
//
// A Session is not safe for concurrent use; the owner serializes calls.
type Session struct {
	src     Source
	table   *convert.Table
	acc     *convert.Accumulator
	seeder  Seeder
	ctl     Controller
	window  time.Duration
	now     func() int64
	sensors []event.SensorID
	state   map[event.SensorID]*sensorState

	// markerPos is how many sensors of the sync marker at the head of the
	// source have been committed. Markers committing several sensors stay at
	// the head until all of them are processed.
	markerPos int
}

// NewSession creates a session with every sensor disabled.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("sensors: no event source")
	}
	if cfg.Table == nil {
		return nil, errors.New("sensors: no conversion table")
	}
	if cfg.IgnoreWindow < 0 {
		return nil, fmt.Errorf("sensors: negative ignore window %s", cfg.IgnoreWindow)
	}
	s := &Session{
		src:     cfg.Source,
		table:   cfg.Table,
		acc:     convert.NewAccumulator(cfg.Table),
		seeder:  cfg.Seeder,
		ctl:     cfg.Control,
		window:  cfg.IgnoreWindow,
		now:     cfg.Now,
		sensors: cfg.Table.Sensors(),
		state:   make(map[event.SensorID]*sensorState),
	}
	if s.ctl == nil {
		s.ctl = nopController{}
	}
	if s.now == nil {
		s.now = input.Monotonic
	}
	for _, id := range s.sensors {
		s.state[id] = &sensorState{}
	}
	return s, nil
}

// Sensors returns the sensors this session reports, in id order.
func (s *Session) Sensors() []event.SensorID {
	return append([]event.SensorID(nil), s.sensors...)
}

// Enabled reports whether sensor is currently enabled.
func (s *Session) Enabled(sensor event.SensorID) bool {
	st, ok := s.state[sensor]
	return ok && st.gate.Enabled()
}

func (s *Session) anyEnabled() bool {
	for _, st := range s.state {
		if st.gate.Enabled() {
			return true
		}
	}
	return false
}

func (s *Session) lookup(sensor event.SensorID) (*sensorState, error) {
	st, ok := s.state[sensor]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSensor, sensor)
	}
	return st, nil
}

// Enable switches a sensor on or off. Requesting the current state is a
// no-op. If the control write fails the state is left unchanged.
//
// Enabling opens the gate after the ignore window and arms one synthetic
// event carrying the last known values, so the next ReadEvents returns data
// without waiting for a new sample.
func (s *Session) Enable(sensor event.SensorID, on bool) error {
	st, err := s.lookup(sensor)
	if err != nil {
		return err
	}
	if st.gate.Enabled() == on {
		return nil
	}
	if err := s.ctl.SetEnabled(sensor, on); err != nil {
		return fmt.Errorf("sensors: set %s enabled=%t: %w", sensor, on, err)
	}

	if !on {
		st.gate.Disable()
		st.seed = false
		log.Debugf("sensors: %s disabled", sensor)
		return nil
	}

	s.seedFromHardware(sensor)
	st.gate.Enable(s.now(), s.window)
	st.seed = true
	log.Debugf("sensors: %s enabled, threshold %d", sensor, st.gate.Threshold())
	return nil
}

// Disable is Enable(sensor, false).
func (s *Session) Disable(sensor event.SensorID) error {
	return s.Enable(sensor, false)
}

// seedFromHardware loads the device's absolute axis state into the
// accumulator. Values are applied only if every channel could be read.
func (s *Session) seedFromHardware(sensor event.SensorID) {
	if s.seeder == nil {
		return
	}
	codes := s.table.Codes(sensor)
	values := make([]int32, len(codes))
	for i, code := range codes {
		v, err := s.seeder.AbsValue(code)
		if err != nil {
			log.Debugf("sensors: %s: no absolute state for code %#x: %v", sensor, code, err)
			return
		}
		values[i] = v
	}
	for i, code := range codes {
		// codes come from the table, so Apply cannot fail
		_ = s.acc.Apply(code, values[i])
	}
}

// SetDelay sets the sampling period of a sensor, truncated to milliseconds.
func (s *Session) SetDelay(sensor event.SensorID, d time.Duration) error {
	if _, err := s.lookup(sensor); err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("%w: delay %s", ErrInvalidArgument, d)
	}
	if err := s.ctl.SetDelay(sensor, d.Milliseconds()); err != nil {
		return fmt.Errorf("sensors: set %s delay: %w", sensor, err)
	}
	return nil
}

// Flush arms a one-shot FLUSH_COMPLETE meta event for sensor.
func (s *Session) Flush(sensor event.SensorID) error {
	st, err := s.lookup(sensor)
	if err != nil {
		return err
	}
	st.gate.RequestFlush()
	return nil
}

// ReadEvents fills buf with up to len(buf) events and returns how many were
// written. Zero with a nil error means no data was available.
//
// On a read error nothing is returned; pending synthetic and flush events
// taken by this call are re-armed and unconsumed records stay buffered.
func (s *Session) ReadEvents(buf []event.Event) (int, error) {
	if len(buf) < 1 {
		return 0, fmt.Errorf("%w: batch size %d", ErrInvalidArgument, len(buf))
	}

	var seeded, flushed []event.SensorID
	fail := func(err error) (int, error) {
		for _, id := range seeded {
			s.state[id].seed = true
		}
		for _, id := range flushed {
			s.state[id].gate.RequestFlush()
		}
		return 0, err
	}

	n := 0
	for _, id := range s.sensors {
		st := s.state[id]
		if !st.seed || n == len(buf) {
			continue
		}
		st.seed = false
		if !st.gate.Enabled() {
			continue
		}
		buf[n] = s.acc.Snapshot(id, s.now())
		n++
		seeded = append(seeded, id)
	}
	data := n

	for _, id := range s.sensors {
		if n == len(buf) {
			break
		}
		if s.state[id].gate.TakeFlush() {
			buf[n] = event.FlushComplete(id)
			n++
			flushed = append(flushed, id)
		}
	}
	if n == len(buf) {
		return n, nil
	}

	budget := len(buf) - n
	if _, err := s.src.Fill(); err != nil {
		return fail(err)
	}
	n, data = s.drain(buf, n, data, &budget)

	if data == 0 && budget > 0 && s.anyEnabled() {
		if _, err := s.src.Fill(); err != nil {
			return fail(err)
		}
		n, _ = s.drain(buf, n, data, &budget)
	}
	return n, nil
}

// drain consumes buffered records until the source is empty or the budget is
// spent. Every marker of an enabled sensor costs one unit of budget, whether
// its event passes the gate or not.
//
// TODO: charging suppressed markers looks like an accident of the old retry
// loop; drop it once consumers no longer depend on the batch sizes.
func (s *Session) drain(buf []event.Event, n, data int, budget *int) (int, int) {
	for *budget > 0 {
		rec, ok := s.src.Peek()
		if !ok {
			break
		}
		switch rec.Kind {
		case input.AxisSample:
			if err := s.acc.Apply(rec.Code, rec.Value); err != nil {
				log.Warnf("sensors: %s: dropping sample: %v", s.table.Name(), err)
			}
			s.src.Next()

		case input.SyncMarker:
			ids, ok := s.table.Marker(rec.Code)
			if !ok {
				log.Debugf("sensors: %s: ignoring sync code %#x", s.table.Name(), rec.Code)
				s.src.Next()
				continue
			}
			for s.markerPos < len(ids) && *budget > 0 {
				id := ids[s.markerPos]
				s.markerPos++
				st := s.state[id]
				if !st.gate.Enabled() {
					continue
				}
				*budget--
				if st.gate.Admit(rec.Time) {
					buf[n] = s.acc.Snapshot(id, rec.Time)
					n++
					data++
				}
			}
			if s.markerPos == len(ids) {
				s.markerPos = 0
				s.src.Next()
			}

		default:
			log.Warnf("sensors: %s: dropping unknown record type=%d code=%#x", s.table.Name(), rec.Type, rec.Code)
			s.src.Next()
		}
	}
	return n, data
}

type nopController struct{}

func (nopController) SetEnabled(event.SensorID, bool) error { return nil }
func (nopController) SetDelay(event.SensorID, int64) error  { return nil }
