// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package control writes the enable and poll-rate attributes of sensor
// devices.
package control

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/sensor_events/internal/event"
)

// Attribute file names.
const (
	AttrEnable    = "enable"
	AttrPollDelay = "poll_delay"
	AttrPoll      = "poll"
)

// Sysfs writes attributes below Dir. With PerSensor set every sensor has its
// own subdirectory named after it (Dir/<sensor>/enable), otherwise all
// sensors share the attributes of Dir.
type Sysfs struct {
	Dir       string
	PerSensor bool
}

func (s Sysfs) path(sensor event.SensorID, attr string) string {
	if s.PerSensor {
		return filepath.Join(s.Dir, sensor.String(), attr)
	}
	return filepath.Join(s.Dir, attr)
}

// SetEnabled writes "1\0" or "0\0" to the enable attribute.
func (s Sysfs) SetEnabled(sensor event.SensorID, on bool) error {
	v := []byte("0\x00")
	if on {
		v = []byte("1\x00")
	}
	return writeAttr(s.path(sensor, AttrEnable), v)
}

// SetDelay writes the delay in milliseconds as a decimal string plus NUL to
// poll_delay, or to poll on devices without poll_delay.
func (s Sysfs) SetDelay(sensor event.SensorID, ms int64) error {
	v := append(strconv.AppendInt(nil, ms, 10), 0)
	err := writeAttr(s.path(sensor, AttrPollDelay), v)
	if errors.Is(err, fs.ErrNotExist) {
		return writeAttr(s.path(sensor, AttrPoll), v)
	}
	return err
}

// writeAttr writes v in a single write. Attributes are never created.
func writeAttr(path string, v []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.Write(v)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Debugf("control: wrote %q to %s", v, path)
	return nil
}

// None accepts every request without touching a device, for handles whose
// rate and power are not controllable (serial hubs, the SPI IMU).
type None struct{}

func (None) SetEnabled(event.SensorID, bool) error { return nil }
func (None) SetDelay(event.SensorID, int64) error  { return nil }
