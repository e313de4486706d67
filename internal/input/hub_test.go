package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDecoder_BigEndianFields(t *testing.T) {
	frame, err := EncodeHubFrame(24, 123_456_789, -2, 300, -32768, 1, -1, 32767)
	require.NoError(t, err)
	require.Len(t, frame, HubFrameSize)

	// Fields are big-endian on the wire.
	assert.Equal(t, []byte{0xFF, 0xFE, 0x01, 0x2C}, frame[hubHeaderSize:hubHeaderSize+4])

	recs := HubDecoder{}.Decode(frame, nil)
	require.Len(t, recs, 7)

	want := []int32{-2, 300, -32768, 1, -1, 32767}
	for i, v := range want {
		assert.Equal(t, AxisSample, recs[i].Kind)
		assert.Equal(t, HubChannel(24, i), recs[i].Code)
		assert.Equal(t, v, recs[i].Value)
		assert.Equal(t, int64(123_456_789), recs[i].Time)
	}
	assert.Equal(t, SyncMarker, recs[6].Kind)
	assert.Equal(t, uint16(24), recs[6].Code)
}

func TestHubDecoder_UnsignedAndWideFields(t *testing.T) {
	light, err := EncodeHubFrame(6, 1, 65000)
	require.NoError(t, err)
	recs := HubDecoder{}.Decode(light, nil)
	require.Len(t, recs, 2)
	assert.Equal(t, int32(65000), recs[0].Value)

	pressure, err := EncodeHubFrame(2, 1, 101325)
	require.NoError(t, err)
	recs = HubDecoder{}.Decode(pressure, nil)
	require.Len(t, recs, 2)
	assert.Equal(t, int32(101325), recs[0].Value)

	rotate, err := EncodeHubFrame(10, 1, -1)
	require.NoError(t, err)
	recs = HubDecoder{}.Decode(rotate, nil)
	require.Len(t, recs, 2)
	assert.Equal(t, int32(-1), recs[0].Value)
}

func TestHubDecoder_MalformedFrames(t *testing.T) {
	unknown := make([]byte, HubFrameSize)
	unknown[0] = 200
	recs := HubDecoder{}.Decode(unknown, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, Unknown, recs[0].Kind)
	assert.Equal(t, uint16(200), recs[0].Type)

	short, err := EncodeHubFrame(0, 1, 1, 2, 3)
	require.NoError(t, err)
	short[1] = 4
	recs = HubDecoder{}.Decode(short, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, Unknown, recs[0].Kind)
}

func TestEncodeHubFrame_Errors(t *testing.T) {
	_, err := EncodeHubFrame(99, 0)
	assert.Error(t, err)

	_, err = EncodeHubFrame(0, 0, 1)
	assert.Error(t, err)
}

func TestHubMaxRecords(t *testing.T) {
	// ir raw carries the widest payload.
	assert.Equal(t, HubFields(20)+1, HubDecoder{}.MaxRecords())
}
