// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package convert

import (
	"fmt"
	"math"

	"github.com/relabs-tech/sensor_events/internal/event"
	"github.com/relabs-tech/sensor_events/internal/input"
)

// GravityEarth is standard gravity in m/s².
const GravityEarth = 9.80665

const degToRad = math.Pi / 180

// Hub scale factors, raw units to SI.
const (
	hubAccel       = GravityEarth / 2048          // 2048 LSB = 1g
	hubGravity     = GravityEarth / math.MaxInt16 // full scale = 1g
	hubGyro        = 2000.0 / 32767 * degToRad    // ±2000°/s full scale, rad/s
	hubMag         = 1.0 / 16                     // µT
	hubOrientation = 1.0 / 64                     // degrees
	hubQuaternion  = 1.0 / 16384
	hubRotVector   = 1.0 / 32767
	hubPressure    = 1.0 / 100 // hPa
	hubTemperature = 1.0 / 10  // °C
)

// Profile names accepted by Profile.
const (
	ProfileAccel8610 = "accel_8610"
	ProfileHubSTM401 = "hub_stm401"
	ProfileMPU9250   = "mpu9250"
)

func must(t *Table, err error) *Table {
	if err != nil {
		panic(err)
	}
	return t
}

// Accel8610 is the single accelerometer behind an input event node:
// ABS_X/Y/Z at 1024 LSB per g, committed by SYN_REPORT.
func Accel8610() *Table {
	const scale = GravityEarth / 1024
	return must(NewTable(ProfileAccel8610,
		map[uint16]Channel{
			input.AbsX: {Sensor: event.Accelerometer, Slot: 0, Scale: scale},
			input.AbsY: {Sensor: event.Accelerometer, Slot: 1, Scale: scale},
			input.AbsZ: {Sensor: event.Accelerometer, Slot: 2, Scale: scale},
		},
		map[uint16][]event.SensorID{
			input.SynReport: {event.Accelerometer},
		},
	))
}

// MPU9250 converts the evdev stream produced by input.MPU9250 for the given
// accel and gyro full-scale range settings (0..3).
func MPU9250(accelRange, gyroRange byte) *Table {
	accel := float32(GravityEarth * float64(int(1)<<accelRange) / 16384)
	gyro := float32(float64(int(250)<<gyroRange) / 32768 * degToRad)
	return must(NewTable(ProfileMPU9250,
		map[uint16]Channel{
			input.AbsX:  {Sensor: event.Accelerometer, Slot: 0, Scale: accel},
			input.AbsY:  {Sensor: event.Accelerometer, Slot: 1, Scale: accel},
			input.AbsZ:  {Sensor: event.Accelerometer, Slot: 2, Scale: accel},
			input.AbsRX: {Sensor: event.Gyroscope, Slot: 0, Scale: gyro},
			input.AbsRY: {Sensor: event.Gyroscope, Slot: 1, Scale: gyro},
			input.AbsRZ: {Sensor: event.Gyroscope, Slot: 2, Scale: gyro},
		},
		map[uint16][]event.SensorID{
			input.SynReport: {event.Accelerometer, event.Gyroscope},
		},
	))
}

// hubScales lists the per-field scale of every hub sensor type. Fields not
// listed pass through unscaled; the step counter keeps its four 16-bit words
// apart, see event.Event.StepCount.
var hubScales = map[event.SensorID][]float32{
	event.Accelerometer:       {hubAccel, hubAccel, hubAccel},
	event.Gyroscope:           {hubGyro, hubGyro, hubGyro},
	event.Pressure:            {hubPressure},
	event.Magnetometer:        {hubMag, hubMag, hubMag},
	event.Orientation:         {hubOrientation, hubOrientation, hubOrientation},
	event.Temperature:         {hubTemperature},
	event.LinearAcceleration:  {hubAccel, hubAccel, hubAccel},
	event.Quaternion:          {hubRotVector, hubRotVector, hubRotVector, hubRotVector},
	event.Gravity:             {hubGravity, hubGravity, hubGravity},
	event.UncalibGyroscope:    {hubGyro, hubGyro, hubGyro, hubGyro, hubGyro, hubGyro},
	event.UncalibMagnetometer: {hubMag, hubMag, hubMag, hubMag, hubMag, hubMag},
	event.Quaternion6Axis:     {hubQuaternion, hubQuaternion, hubQuaternion, hubQuaternion},
	event.Quaternion9Axis:     {hubQuaternion, hubQuaternion, hubQuaternion, hubQuaternion},
}

// HubSTM401 covers every sensor type of the hub frame format. Each frame is
// committed by a marker coded with its own sensor type.
func HubSTM401() *Table {
	channels := make(map[uint16]Channel)
	markers := make(map[uint16][]event.SensorID)
	for id := event.Accelerometer; id <= event.LiftGesture; id++ {
		n := input.HubFields(uint8(id))
		if n == 0 {
			continue
		}
		scales := hubScales[id]
		for i := 0; i < n; i++ {
			scale := float32(1)
			if i < len(scales) {
				scale = scales[i]
			}
			channels[input.HubChannel(uint8(id), i)] = Channel{Sensor: id, Slot: i, Scale: scale}
		}
		markers[uint16(id)] = []event.SensorID{id}
	}
	return must(NewTable(ProfileHubSTM401, channels, markers))
}

// Profile returns a built-in table by name. The mpu9250 profile uses the
// given ranges; the others ignore them.
func Profile(name string, accelRange, gyroRange byte) (*Table, error) {
	switch name {
	case ProfileAccel8610:
		return Accel8610(), nil
	case ProfileHubSTM401:
		return HubSTM401(), nil
	case ProfileMPU9250:
		return MPU9250(accelRange, gyroRange), nil
	default:
		return nil, fmt.Errorf("unknown conversion profile %q", name)
	}
}
