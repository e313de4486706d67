// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/relabs-tech/sensor_events/internal/config"
	"github.com/relabs-tech/sensor_events/internal/control"
	"github.com/relabs-tech/sensor_events/internal/convert"
	"github.com/relabs-tech/sensor_events/internal/event"
	"github.com/relabs-tech/sensor_events/internal/input"
	"github.com/relabs-tech/sensor_events/internal/sensors"
)

// Pipeline owns an event handle and the session reading it. It is driven by a
// single goroutine; control requests from other goroutines go through the
// channel passed to Run.
type Pipeline struct {
	Session *sensors.Session
	Table   *convert.Table

	handle  io.Closer
	fd      int           // -1 when the handle cannot be polled
	tick    *time.Ticker  // paces handles that sample on read
	timeout time.Duration // poll timeout
	buf     []event.Event

	closeOnce sync.Once
	closeErr  error
}

// source is an opened event handle.
type source struct {
	handle io.ReadCloser
	dec    input.Decoder
	seeder sensors.Seeder
	fd     int
	paced  bool
}

func openSource(cfg *config.Config) (*source, error) {
	switch cfg.SourceKind {
	case config.SourceEvdev:
		dev, err := input.OpenEvdev(cfg.DevicePath)
		if err != nil {
			return nil, err
		}
		return &source{handle: dev, dec: input.EvdevDecoder{}, seeder: dev, fd: dev.Fd()}, nil

	case config.SourceHub:
		if cfg.SerialBaudRate == 0 {
			dev, err := input.OpenDevice(cfg.DevicePath)
			if err != nil {
				return nil, err
			}
			return &source{handle: dev, dec: input.HubDecoder{}, fd: dev.Fd()}, nil
		}
		hub, err := input.OpenSerial(cfg.DevicePath, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		return &source{handle: hub, dec: input.HubDecoder{}, fd: -1}, nil

	case config.SourceMPU9250:
		imu, err := input.OpenMPU9250(cfg.MPUSPIDevice, cfg.MPUCSPin, cfg.MPUAccelRange, cfg.MPUGyroRange)
		if err != nil {
			return nil, err
		}
		return &source{handle: imu, dec: input.EvdevDecoder{}, seeder: imu, fd: -1, paced: true}, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.SourceKind)
	}
}

// LoadTable returns the YAML table if one is configured, else the built-in
// profile.
func LoadTable(cfg *config.Config) (*convert.Table, error) {
	if cfg.ConversionFile != "" {
		return convert.LoadTable(cfg.ConversionFile)
	}
	return convert.Profile(cfg.Profile, cfg.MPUAccelRange, cfg.MPUGyroRange)
}

// OpenPipeline opens the configured event source and builds its session.
// Every sensor starts disabled.
func OpenPipeline(cfg *config.Config) (*Pipeline, error) {
	table, err := LoadTable(cfg)
	if err != nil {
		return nil, err
	}

	src, err := openSource(cfg)
	if err != nil {
		return nil, err
	}

	capacity := cfg.RingCapacity
	if capacity < src.dec.MaxRecords() {
		log.Warnf("pipeline: RING_CAPACITY %d is below one %s frame, using %d", capacity, cfg.SourceKind, src.dec.MaxRecords())
		capacity = src.dec.MaxRecords()
	}
	ring, err := input.NewRing(src.handle, src.dec, capacity)
	if err != nil {
		src.handle.Close()
		return nil, err
	}

	var ctl sensors.Controller = control.None{}
	if cfg.ControlDir != "" {
		ctl = control.Sysfs{Dir: cfg.ControlDir, PerSensor: cfg.ControlPerSensor}
	}

	session, err := sensors.NewSession(sensors.Config{
		Source:       ring,
		Table:        table,
		Seeder:       src.seeder,
		Control:      ctl,
		IgnoreWindow: cfg.IgnoreWindow(),
	})
	if err != nil {
		src.handle.Close()
		return nil, err
	}

	var pace time.Duration
	if src.paced {
		pace = cfg.PollDelay()
	}
	log.Printf("pipeline: %s source %s, table %s, ring capacity %d", cfg.SourceKind, cfg.DevicePath, table.Name(), capacity)
	return newPipeline(session, table, src.handle, src.fd, pace, cfg.PollTimeout(), cfg.ReadBatchSize), nil
}

func newPipeline(s *sensors.Session, table *convert.Table, handle io.Closer, fd int, pace, timeout time.Duration, batch int) *Pipeline {
	p := &Pipeline{
		Session: s,
		Table:   table,
		handle:  handle,
		fd:      fd,
		timeout: timeout,
		buf:     make([]event.Event, max(batch, 1)),
	}
	if pace > 0 {
		p.tick = time.NewTicker(pace)
	}
	return p
}

// Start enables the given sensors, or every sensor of the table when the list
// is empty, and requests delay as their sampling period.
func (p *Pipeline) Start(enabled []event.SensorID, delay time.Duration) error {
	if len(enabled) == 0 {
		enabled = p.Session.Sensors()
	}
	for _, id := range enabled {
		if err := p.Session.Enable(id, true); err != nil {
			return err
		}
		if err := p.Session.SetDelay(id, delay); err != nil {
			return err
		}
		log.Printf("pipeline: %s enabled, delay %s", id, delay)
	}
	return nil
}

// wait blocks until the handle has data, the poll timeout expires or the next
// tick of a paced handle.
func (p *Pipeline) wait(ctx context.Context) error {
	switch {
	case p.tick != nil:
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.tick.C:
		}
	case p.fd >= 0:
		fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(fds, int(p.timeout.Milliseconds())); err != nil && !errors.Is(err, unix.EINTR) {
			return &input.IOError{Op: "poll", Err: err}
		}
	}
	return nil
}

// Next waits for the handle and returns the next batch. The batch is only
// valid until the following call.
func (p *Pipeline) Next(ctx context.Context) ([]event.Event, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	n, err := p.Session.ReadEvents(p.buf)
	if err != nil {
		return nil, err
	}
	return p.buf[:n], nil
}

// Run reads batches until ctx is done or the handle fails, handing every event
// to emit. Control requests are applied between reads.
//
// A handle with neither a poll descriptor nor a pace blocks inside Read, so it
// is closed as soon as ctx is done.
func (p *Pipeline) Run(ctx context.Context, controls <-chan ControlMessage, emit func(event.Event)) error {
	if p.fd < 0 && p.tick == nil {
		stop := context.AfterFunc(ctx, p.closeHandle)
		defer stop()
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		p.applyControls(controls)

		events, err := p.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, input.ErrPartialRecord) {
				// whole frames are buffered, the rest arrives with the next read
				log.Debugf("pipeline: %v", err)
				continue
			}
			return fmt.Errorf("pipeline: %w", err)
		}
		for _, ev := range events {
			emit(ev)
		}
	}
}

func (p *Pipeline) applyControls(controls <-chan ControlMessage) {
	for {
		select {
		case m, ok := <-controls:
			if !ok {
				return
			}
			if err := m.Apply(p.Session); err != nil {
				log.Warnf("pipeline: control %s %s: %v", m.Op, m.Sensor, err)
				continue
			}
			log.Printf("pipeline: control %s %s applied", m.Op, m.Sensor)
		default:
			return
		}
	}
}

// Close disables every enabled sensor and closes the handle.
func (p *Pipeline) Close() error {
	if p.tick != nil {
		p.tick.Stop()
	}
	for _, id := range p.Session.Sensors() {
		if !p.Session.Enabled(id) {
			continue
		}
		if err := p.Session.Enable(id, false); err != nil {
			log.Warnf("pipeline: disable %s: %v", id, err)
		}
	}
	p.closeHandle()
	return p.closeErr
}

func (p *Pipeline) closeHandle() {
	p.closeOnce.Do(func() {
		p.closeErr = p.handle.Close()
	})
}
