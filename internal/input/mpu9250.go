// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// mpuRecords is the number of records produced per sample: three accel
// axes, three gyro axes and a SYN_REPORT.
const mpuRecords = 7

// MPU9250 exposes an SPI-attached MPU9250 as an evdev record stream
// (ABS_X/Y/Z accel, ABS_RX/RY/RZ gyro, SYN_REPORT), for boards where no
// kernel input driver owns the chip.
type MPU9250 struct {
	name    string
	imu     *mpu9250.MPU9250
	now     func() int64
	pending []byte
	last    [6]int32
	sampled bool
}

// OpenMPU9250 initializes an MPU9250 over SPI with the given full-scale ranges
// (accel 0=±2g..3=±16g, gyro 0=±250°/s..3=±2000°/s).
func OpenMPU9250(spiDev, csPin string, accelRange, gyroRange byte) (*MPU9250, error) {
	name := spiDev
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport: %w", name, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w", name, err)
	}
	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w", name, err)
	}

	if err := imu.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set accel range: %w", name, err)
	}
	log.Printf("%s IMU: accelerometer range set to %d (±%dg)", name, accelRange, 2<<accelRange)

	if err := imu.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set gyro range: %w", name, err)
	}
	log.Printf("%s IMU: gyroscope range set to %d (±%d°/s)", name, gyroRange, 250<<gyroRange)

	return &MPU9250{name: name, imu: imu, now: Monotonic}, nil
}

func (m *MPU9250) sample() error {
	reads := []func() (int16, error){
		m.imu.GetAccelerationX,
		m.imu.GetAccelerationY,
		m.imu.GetAccelerationZ,
		m.imu.GetRotationX,
		m.imu.GetRotationY,
		m.imu.GetRotationZ,
	}
	var v [6]int32
	for i, read := range reads {
		raw, err := read()
		if err != nil {
			return &IOError{Op: "read", Err: fmt.Errorf("%s IMU axis %d: %w", m.name, i, err)}
		}
		v[i] = int32(raw)
	}
	m.last = v
	m.sampled = true
	return nil
}

// Read samples the chip when no records are pending and copies out as many
// whole records as fit in p.
func (m *MPU9250) Read(p []byte) (int, error) {
	if len(m.pending) == 0 {
		if err := m.sample(); err != nil {
			return 0, err
		}
		ts := m.now()
		buf := make([]byte, 0, mpuRecords*EventSize)
		for code, v := range m.last {
			buf = AppendEvdev(buf, EvAbs, uint16(code), v, ts)
		}
		m.pending = AppendEvdev(buf, EvSyn, SynReport, 0, ts)
	}
	n := min(len(p)/EventSize*EventSize, len(m.pending))
	copy(p, m.pending[:n])
	m.pending = m.pending[n:]
	return n, nil
}

// AbsValue returns the last sampled value of an axis, sampling once if the
// chip has not been read yet.
func (m *MPU9250) AbsValue(code uint16) (int32, error) {
	if int(code) >= len(m.last) {
		return 0, ErrNoAbsState
	}
	if !m.sampled {
		if err := m.sample(); err != nil {
			return 0, err
		}
	}
	return m.last[code], nil
}

func (m *MPU9250) Close() error {
	return nil
}
