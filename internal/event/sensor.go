// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package event

import (
	"fmt"
	"strings"
)

// SensorID follows the sensor hub numbering.
type SensorID int32

const (
	Accelerometer       SensorID = 0
	Gyroscope           SensorID = 1
	Pressure            SensorID = 2
	Magnetometer        SensorID = 3
	Orientation         SensorID = 4
	Temperature         SensorID = 5
	Light               SensorID = 6
	LinearAcceleration  SensorID = 7
	Quaternion          SensorID = 8
	Gravity             SensorID = 9
	DisplayRotate       SensorID = 10
	DisplayBrightness   SensorID = 11
	Dock                SensorID = 12
	Proximity           SensorID = 13
	FlatUp              SensorID = 14
	FlatDown            SensorID = 15
	Stowed              SensorID = 16
	CameraActivate      SensorID = 17
	NFCDetect           SensorID = 18
	IRGesture           SensorID = 19
	IRRaw               SensorID = 20
	SignificantMotion   SensorID = 21
	StepDetector        SensorID = 22
	StepCounter         SensorID = 23
	UncalibGyroscope    SensorID = 24
	UncalibMagnetometer SensorID = 25
	IRObject            SensorID = 26
	ChopChopGesture     SensorID = 27
	Quaternion6Axis     SensorID = 28
	Quaternion9Axis     SensorID = 29
	LiftGesture         SensorID = 30
)

var sensorNames = map[SensorID]string{
	Accelerometer:       "accelerometer",
	Gyroscope:           "gyroscope",
	Pressure:            "pressure",
	Magnetometer:        "magnetometer",
	Orientation:         "orientation",
	Temperature:         "temperature",
	Light:               "light",
	LinearAcceleration:  "linear_acceleration",
	Quaternion:          "quaternion",
	Gravity:             "gravity",
	DisplayRotate:       "display_rotate",
	DisplayBrightness:   "display_brightness",
	Dock:                "dock",
	Proximity:           "proximity",
	FlatUp:              "flat_up",
	FlatDown:            "flat_down",
	Stowed:              "stowed",
	CameraActivate:      "camera_activate",
	NFCDetect:           "nfc_detect",
	IRGesture:           "ir_gesture",
	IRRaw:               "ir_raw",
	SignificantMotion:   "significant_motion",
	StepDetector:        "step_detector",
	StepCounter:         "step_counter",
	UncalibGyroscope:    "uncalibrated_gyroscope",
	UncalibMagnetometer: "uncalibrated_magnetometer",
	IRObject:            "ir_object",
	ChopChopGesture:     "chopchop_gesture",
	Quaternion6Axis:     "quaternion_6axis",
	Quaternion9Axis:     "quaternion_9axis",
	LiftGesture:         "lift_gesture",
}

func (id SensorID) String() string {
	if name, ok := sensorNames[id]; ok {
		return name
	}
	return fmt.Sprintf("sensor_%d", int32(id))
}

// ParseSensor resolves a sensor name (as returned by String) to its id.
func ParseSensor(name string) (SensorID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for id, n := range sensorNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor %q", name)
}
