package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensor_events/internal/event"
)

const testSession = "0b7d2a52-4b1e-4c47-9a43-4d3c2f0e7a11"

func accelEvent() event.Event {
	ev := event.Event{
		Version:   event.Version,
		Sensor:    event.Accelerometer,
		Kind:      event.KindData,
		Timestamp: 1_020_000_000,
	}
	ev.Data[0], ev.Data[1], ev.Data[2] = 1.5, -2, 9.75
	ev.Data[5] = 42 // beyond the sensor's width
	return ev
}

func assertGolden(t *testing.T, name string, p Payload) {
	t.Helper()
	data, err := json.MarshalIndent(p, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func TestPayload_Golden(t *testing.T) {
	assertGolden(t, "payload_data", NewPayload(testSession, accelEvent(), 3))
	assertGolden(t, "payload_meta", NewPayload(testSession, event.FlushComplete(event.Gyroscope), 3))
}

func TestNewPayload_Width(t *testing.T) {
	assert.Len(t, NewPayload(testSession, accelEvent(), 6).Values, 6)
	assert.Len(t, NewPayload(testSession, accelEvent(), 100).Values, event.PayloadSize)
	assert.Empty(t, NewPayload(testSession, accelEvent(), -1).Values)
}

func TestNewPayload_StepCount(t *testing.T) {
	ev := event.Event{Version: event.Version, Sensor: event.StepCounter, Timestamp: 7}
	ev.Data[1] = 2
	ev.Data[3] = 9

	p := NewPayload(testSession, ev, 4)
	require.NotNil(t, p.Steps)
	assert.Equal(t, uint64(2<<32+9), *p.Steps)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"steps":8589934601`)

	accel := NewPayload(testSession, event.Event{Sensor: event.Accelerometer}, 3)
	assert.Nil(t, accel.Steps)
}

func TestEventTopic(t *testing.T) {
	assert.Equal(t, "sensors/events/accelerometer", EventTopic("sensors/events", accelEvent()))
	assert.Equal(t, "sensors/events/meta", EventTopic("sensors/events", event.FlushComplete(event.Light)))
}

func TestFormatPayload(t *testing.T) {
	line := formatPayload(NewPayload(testSession, accelEvent(), 3))
	assert.Equal(t, "[DATA] accelerometer        t=1.020000000    1.5000   -2.0000    9.7500", line)

	line = formatPayload(NewPayload(testSession, event.FlushComplete(event.Gyroscope), 3))
	assert.Equal(t, "[META] gyroscope            flush_complete", line)
}

type recordingSession struct {
	calls []string
	err   error
}

func (r *recordingSession) Enable(sensor event.SensorID, on bool) error {
	r.calls = append(r.calls, fmt.Sprintf("enable %s %t", sensor, on))
	return r.err
}

func (r *recordingSession) Flush(sensor event.SensorID) error {
	r.calls = append(r.calls, fmt.Sprintf("flush %s", sensor))
	return r.err
}

func (r *recordingSession) SetDelay(sensor event.SensorID, d time.Duration) error {
	r.calls = append(r.calls, fmt.Sprintf("delay %s %s", sensor, d))
	return r.err
}

func TestControlMessage_Dispatch(t *testing.T) {
	msgs := []string{
		`{"op":"enable","sensor":"accelerometer"}`,
		`{"op":"delay","sensor":"accelerometer","delay_ms":20}`,
		`{"op":"flush","sensor":"accelerometer"}`,
		`{"op":"disable","sensor":"light"}`,
	}
	rec := &recordingSession{}
	for _, raw := range msgs {
		m, err := ParseControl([]byte(raw))
		require.NoError(t, err, raw)
		require.NoError(t, m.Apply(rec))
	}

	assert.Equal(t, []string{
		"enable accelerometer true",
		"delay accelerometer 20ms",
		"flush accelerometer",
		"enable light false",
	}, rec.calls)
}

func TestControlMessage_Errors(t *testing.T) {
	for _, raw := range []string{
		`{"op":"enable"`,
		`{"op":"reboot","sensor":"accelerometer"}`,
		`{"op":"enable","sensor":"toaster"}`,
	} {
		_, err := ParseControl([]byte(raw))
		assert.Error(t, err, raw)
	}

	rec := &recordingSession{err: errors.New("busy")}
	err := ControlMessage{Op: OpFlush, Sensor: "gyroscope"}.Apply(rec)
	assert.ErrorIs(t, err, rec.err)
}
