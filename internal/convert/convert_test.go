package convert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensor_events/internal/event"
	"github.com/relabs-tech/sensor_events/internal/input"
)

func TestAccumulator_AccelScale(t *testing.T) {
	acc := NewAccumulator(Accel8610())

	require.NoError(t, acc.Apply(input.AbsX, 2048))
	require.NoError(t, acc.Apply(input.AbsY, -1024))
	require.NoError(t, acc.Apply(input.AbsZ, 0))

	ev := acc.Snapshot(event.Accelerometer, 42)
	assert.Equal(t, int32(event.Version), ev.Version)
	assert.Equal(t, event.KindData, ev.Kind)
	assert.Equal(t, int64(42), ev.Timestamp)
	assert.InDelta(t, 19.6133, ev.Data[0], 1e-4)
	assert.InDelta(t, -9.80665, ev.Data[1], 1e-4)
	assert.Equal(t, float32(0), ev.Data[2])
}

func TestAccumulator_LastWriteWins(t *testing.T) {
	acc := NewAccumulator(Accel8610())

	require.NoError(t, acc.Apply(input.AbsX, 1024))
	require.NoError(t, acc.Apply(input.AbsX, 512))

	ev := acc.Snapshot(event.Accelerometer, 0)
	assert.InDelta(t, GravityEarth/2, ev.Data[0], 1e-4)
}

func TestAccumulator_SnapshotIsIdempotent(t *testing.T) {
	acc := NewAccumulator(Accel8610())
	require.NoError(t, acc.Apply(input.AbsZ, 1024))

	first := acc.Snapshot(event.Accelerometer, 7)
	second := acc.Snapshot(event.Accelerometer, 7)
	assert.Equal(t, first, second)
}

func TestAccumulator_UnknownChannel(t *testing.T) {
	acc := NewAccumulator(Accel8610())
	require.NoError(t, acc.Apply(input.AbsX, 100))

	err := acc.Apply(input.AbsRX, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChannel))

	// Known slots are untouched.
	ev := acc.Snapshot(event.Accelerometer, 0)
	assert.InDelta(t, 100*GravityEarth/1024, ev.Data[0], 1e-4)
}

func TestAccumulator_Offset(t *testing.T) {
	table, err := NewTable("offset",
		map[uint16]Channel{7: {Sensor: event.Temperature, Slot: 0, Scale: 0.5, Offset: -40}},
		map[uint16][]event.SensorID{1: {event.Temperature}},
	)
	require.NoError(t, err)

	acc := NewAccumulator(table)
	require.NoError(t, acc.Apply(7, 130))
	assert.InDelta(t, 25, acc.Snapshot(event.Temperature, 0).Data[0], 1e-6)
}

func TestNewTable_Validation(t *testing.T) {
	markers := map[uint16][]event.SensorID{0: {event.Accelerometer}}

	_, err := NewTable("slot", map[uint16]Channel{0: {Sensor: event.Accelerometer, Slot: event.PayloadSize}}, markers)
	assert.Error(t, err)

	_, err = NewTable("orphan", map[uint16]Channel{0: {Sensor: event.Gyroscope, Slot: 0}}, markers)
	assert.Error(t, err)

	_, err = NewTable("empty", nil, map[uint16][]event.SensorID{0: {}})
	assert.Error(t, err)
}

func TestTable_Lookups(t *testing.T) {
	table := MPU9250(0, 0)

	assert.Equal(t, []event.SensorID{event.Accelerometer, event.Gyroscope}, table.Sensors())
	assert.Equal(t, 3, table.Width(event.Accelerometer))
	assert.Equal(t, []uint16{input.AbsRX, input.AbsRY, input.AbsRZ}, table.Codes(event.Gyroscope))
	assert.True(t, table.Has(event.Gyroscope))
	assert.False(t, table.Has(event.Magnetometer))

	ids, ok := table.Marker(input.SynReport)
	require.True(t, ok)
	assert.Equal(t, []event.SensorID{event.Accelerometer, event.Gyroscope}, ids)

	_, ok = table.Marker(input.SynDropped)
	assert.False(t, ok)
}

func TestMPU9250_Ranges(t *testing.T) {
	low := MPU9250(0, 0)
	high := MPU9250(3, 3)

	ch, _ := low.Channel(input.AbsX)
	assert.InDelta(t, GravityEarth/16384, ch.Scale, 1e-7)
	ch, _ = high.Channel(input.AbsX)
	assert.InDelta(t, GravityEarth*8/16384, ch.Scale, 1e-7)

	ch, _ = low.Channel(input.AbsRX)
	assert.InDelta(t, 250.0/32768*degToRad, ch.Scale, 1e-7)
	ch, _ = high.Channel(input.AbsRX)
	assert.InDelta(t, 2000.0/32768*degToRad, ch.Scale, 1e-7)
}

func TestHubSTM401_CoversHubFrames(t *testing.T) {
	table := HubSTM401()

	assert.True(t, table.Has(event.Accelerometer))
	assert.True(t, table.Has(event.IRRaw))
	assert.Equal(t, input.HubFields(uint8(event.UncalibGyroscope)), table.Width(event.UncalibGyroscope))

	frame, err := input.EncodeHubFrame(uint8(event.Accelerometer), 5, 2048, 0, -2048)
	require.NoError(t, err)

	acc := NewAccumulator(table)
	for _, rec := range (input.HubDecoder{}).Decode(frame, nil) {
		if rec.Kind == input.AxisSample {
			require.NoError(t, acc.Apply(rec.Code, rec.Value))
		}
	}
	ev := acc.Snapshot(event.Accelerometer, 5)
	assert.InDelta(t, GravityEarth, ev.Data[0], 1e-4)
	assert.InDelta(t, -GravityEarth, ev.Data[2], 1e-4)
}

func TestHubSTM401_StepCounterWords(t *testing.T) {
	table := HubSTM401()
	frame, err := input.EncodeHubFrame(uint8(event.StepCounter), 5, 0, 1, 0, 5)
	require.NoError(t, err)

	acc := NewAccumulator(table)
	for _, rec := range (input.HubDecoder{}).Decode(frame, nil) {
		if rec.Kind == input.AxisSample {
			require.NoError(t, acc.Apply(rec.Code, rec.Value))
		}
	}
	ev := acc.Snapshot(event.StepCounter, 5)
	assert.Equal(t, []float32{0, 1, 0, 5}, ev.Data[:4])
	assert.Equal(t, uint64(1<<32+5), ev.StepCount())
}

func TestProfile(t *testing.T) {
	for _, name := range []string{ProfileAccel8610, ProfileHubSTM401, ProfileMPU9250} {
		table, err := Profile(name, 0, 0)
		require.NoError(t, err, name)
		assert.Equal(t, name, table.Name())
	}

	_, err := Profile("nope", 0, 0)
	assert.Error(t, err)
}

func TestParseTable(t *testing.T) {
	doc := []byte(`
name: board
markers:
  - code: 0
    sensors: [accelerometer, gyroscope]
channels:
  - code: 0
    sensor: accelerometer
    slot: 0
    scale: 0.5
  - code: 3
    sensor: gyroscope
    slot: 2
    scale: 2
    offset: 1
`)
	table, err := ParseTable(doc)
	require.NoError(t, err)
	assert.Equal(t, "board", table.Name())
	assert.Equal(t, 3, table.Width(event.Gyroscope))

	acc := NewAccumulator(table)
	require.NoError(t, acc.Apply(3, 10))
	assert.Equal(t, float32(21), acc.Snapshot(event.Gyroscope, 0).Data[2])
}

func TestParseTable_Errors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "markers: [",
		"unknown sensor": "markers:\n  - code: 0\n    sensors: [toaster]\n",
		"duplicate channel": `
markers:
  - code: 0
    sensors: [accelerometer]
channels:
  - {code: 1, sensor: accelerometer, slot: 0, scale: 1}
  - {code: 1, sensor: accelerometer, slot: 1, scale: 1}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte("markers:\n  - code: 0\n    sensors: [light]\nchannels:\n  - {code: 1, sensor: light, slot: 0, scale: 1}\n"), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", table.Name())
	assert.True(t, table.Has(event.Light))

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalTable_ParsesBack(t *testing.T) {
	orig := HubSTM401()
	data, err := MarshalTable(orig)
	require.NoError(t, err)

	parsed, err := ParseTable(data)
	require.NoError(t, err)
	assert.Equal(t, orig.Name(), parsed.Name())
	assert.Equal(t, orig.Sensors(), parsed.Sensors())
	for _, id := range orig.Sensors() {
		assert.Equal(t, orig.Codes(id), parsed.Codes(id), id.String())
		for _, code := range orig.Codes(id) {
			want, _ := orig.Channel(code)
			got, _ := parsed.Channel(code)
			assert.Equal(t, want, got)
		}
	}
}
