package input

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evdevStream(t *testing.T, recs ...RawRecord) []byte {
	t.Helper()
	var buf []byte
	for _, r := range recs {
		buf = AppendEvdev(buf, r.Type, r.Code, r.Value, r.Time)
	}
	return buf
}

func TestEvdevDecoder_Decode(t *testing.T) {
	stream := evdevStream(t,
		RawRecord{Type: EvAbs, Code: AbsY, Value: -512, Time: 1_500_002_000},
		RawRecord{Type: EvSyn, Code: SynReport, Time: 1_500_003_000},
		RawRecord{Type: EvKey, Code: 0x14A, Value: 1, Time: 7_000},
	)
	require.Len(t, stream, 3*EventSize)

	var dec EvdevDecoder
	recs := dec.Decode(stream[:EventSize], nil)
	recs = dec.Decode(stream[EventSize:2*EventSize], recs)
	recs = dec.Decode(stream[2*EventSize:], recs)
	require.Len(t, recs, 3)

	assert.Equal(t, RawRecord{Kind: AxisSample, Type: EvAbs, Code: AbsY, Value: -512, Time: 1_500_002_000}, recs[0])
	assert.Equal(t, SyncMarker, recs[1].Kind)
	assert.Equal(t, int64(1_500_003_000), recs[1].Time)
	assert.Equal(t, Unknown, recs[2].Kind)
	assert.Equal(t, uint16(EvKey), recs[2].Type)
}

func TestRing_FillStopsAtCapacity(t *testing.T) {
	stream := evdevStream(t,
		RawRecord{Type: EvAbs, Code: AbsX, Value: 1},
		RawRecord{Type: EvAbs, Code: AbsY, Value: 2},
		RawRecord{Type: EvAbs, Code: AbsZ, Value: 3},
		RawRecord{Type: EvSyn, Code: SynReport},
		RawRecord{Type: EvAbs, Code: AbsX, Value: 4},
		RawRecord{Type: EvSyn, Code: SynReport},
	)
	ring, err := NewRing(bytes.NewReader(stream), EvdevDecoder{}, 4)
	require.NoError(t, err)

	n, err := ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Full ring reads nothing.
	n, err = ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	rec, ok := ring.Peek()
	require.True(t, ok)
	assert.Equal(t, int32(1), rec.Value)

	// Peek does not consume.
	rec, ok = ring.Peek()
	require.True(t, ok)
	assert.Equal(t, int32(1), rec.Value)
	ring.Next()

	n, err = ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var values []int32
	for {
		rec, ok := ring.NextRecord()
		if !ok {
			break
		}
		values = append(values, rec.Value)
	}
	assert.Equal(t, []int32{2, 3, 0, 4}, values)
	assert.Equal(t, 0, ring.Len())
}

func TestRing_EOFIsNoData(t *testing.T) {
	ring, err := NewRing(bytes.NewReader(nil), EvdevDecoder{}, 4)
	require.NoError(t, err)

	n, err := ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRing_PartialRecord(t *testing.T) {
	stream := evdevStream(t, RawRecord{Type: EvAbs, Code: AbsX, Value: 1})
	ring, err := NewRing(bytes.NewReader(stream[:EventSize-3]), EvdevDecoder{}, 4)
	require.NoError(t, err)

	_, err = ring.Fill()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialRecord)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "fill", ioErr.Op)
	assert.Equal(t, 0, ring.Len())
}

// chunks returns one queued slice per read.
type chunks [][]byte

func (c *chunks) Read(p []byte) (int, error) {
	if len(*c) == 0 {
		return 0, io.EOF
	}
	n := copy(p, (*c)[0])
	(*c)[0] = (*c)[0][n:]
	if len((*c)[0]) == 0 {
		*c = (*c)[1:]
	}
	return n, nil
}

func TestRing_PartialReadKeepsWholeFrames(t *testing.T) {
	a, err := EncodeHubFrame(0, 10, 1, 2, 3)
	require.NoError(t, err)
	b, err := EncodeHubFrame(5, 20, 215)
	require.NoError(t, err)

	src := &chunks{append(append([]byte(nil), a...), b[:10]...), b[10:]}
	ring, err := NewRing(src, HubDecoder{}, 2*hubMaxRecords)
	require.NoError(t, err)

	n, err := ring.Fill()
	assert.ErrorIs(t, err, ErrPartialRecord)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, ring.Len())

	for i := 0; i < 4; i++ {
		ring.Next()
	}

	n, err = ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, ok := ring.NextRecord()
	require.True(t, ok)
	assert.Equal(t, RawRecord{Kind: AxisSample, Type: 5, Code: HubChannel(5, 0), Value: 215, Time: 20}, rec)
	rec, ok = ring.NextRecord()
	require.True(t, ok)
	assert.Equal(t, SyncMarker, rec.Kind)
	assert.Equal(t, 0, ring.Len())
}

func TestRing_ReadError(t *testing.T) {
	boom := errors.New("device gone")
	ring, err := NewRing(iotest.ErrReader(boom), EvdevDecoder{}, 4)
	require.NoError(t, err)

	_, err = ring.Fill()
	assert.ErrorIs(t, err, boom)
}

func TestNewRing_CapacityTooSmall(t *testing.T) {
	_, err := NewRing(bytes.NewReader(nil), HubDecoder{}, 4)
	assert.Error(t, err)
}

type nopCloser struct{ io.Reader }

func (nopCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopCloser) Close() error                { return nil }

func TestSerialHub_ReassemblesFrames(t *testing.T) {
	a, err := EncodeHubFrame(0, 10, 1, 2, 3)
	require.NoError(t, err)
	b, err := EncodeHubFrame(5, 20, 215)
	require.NoError(t, err)

	port := nopCloser{iotest.OneByteReader(bytes.NewReader(append(a, b...)))}
	ring, err := NewRing(NewSerialHub(port, func() int64 { return 10 }), HubDecoder{}, 64)
	require.NoError(t, err)

	n, err := ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = ring.Fill()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSerialHub_MapsHubClockToHost(t *testing.T) {
	var stream []byte
	for _, ts := range []int64{500, 20_500, 40_500} {
		f, err := EncodeHubFrame(5, ts, 215)
		require.NoError(t, err)
		stream = append(stream, f...)
	}

	host := int64(3_000_000_000)
	hub := NewSerialHub(nopCloser{bytes.NewReader(stream)}, func() int64 { return host })
	ring, err := NewRing(hub, HubDecoder{}, hubMaxRecords)
	require.NoError(t, err)

	var got []int64
	for i := 0; i < 3; i++ {
		// Host time moving on between reads must not shift later frames.
		host += 1_000_000
		n, err := ring.Fill()
		require.NoError(t, err)
		require.Equal(t, 2, n)
		rec, _ := ring.NextRecord()
		got = append(got, rec.Time)
		ring.Next()
	}
	assert.Equal(t, []int64{3_001_000_000, 3_001_020_000, 3_001_040_000}, got)
}
