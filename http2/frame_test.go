package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	var buf []byte
	buf = EncodePing(buf, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, false)
	f, n, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, len(buf), n)
	ping := f.(*PingFrame)
	assert.False(t, ping.ACK)
	assert.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, ping.Data)
}

func TestParseFrameIncomplete(t *testing.T) {
	full := EncodeData(nil, 1, []byte("hello world"), true)
	f, n, err := parseFrame(full[:5], 16384)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Zero(t, n)

	f, n, err = parseFrame(full, 16384)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, len(full), n)
}

func TestDataFrameRoundTrip(t *testing.T) {
	buf := EncodeData(nil, 3, []byte("payload"), true)
	f, n, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	df := f.(*DataFrame)
	assert.Equal(t, []byte("payload"), df.Data)
	assert.True(t, df.EndStream)
	assert.EqualValues(t, 3, df.StreamID)
}

func TestSettingsFrameRoundTrip(t *testing.T) {
	in := []Setting{
		{ID: SettingHeaderTableSize, Value: 1024},
		{ID: SettingInitialWindowSize, Value: 70000},
	}
	buf := EncodeSettings(nil, in)
	f, n, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	sf := f.(*SettingsFrame)
	assert.False(t, sf.ACK)
	assert.Equal(t, in, sf.Settings)
}

func TestSettingsACKRoundTrip(t *testing.T) {
	buf := EncodeSettingsACK(nil)
	f, _, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	assert.True(t, f.(*SettingsFrame).ACK)
}

func TestGoAwayRoundTrip(t *testing.T) {
	buf := EncodeGoAway(nil, 41, ErrCodeProtocol, []byte("bye"))
	f, _, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	ga := f.(*GoAwayFrame)
	assert.EqualValues(t, 41, ga.LastStreamID)
	assert.Equal(t, ErrCodeProtocol, ga.ErrorCode)
	assert.Equal(t, []byte("bye"), ga.DebugData)
}

func TestWindowUpdateRoundTrip(t *testing.T) {
	buf := EncodeWindowUpdate(nil, 5, 1000)
	f, _, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	wu := f.(*WindowUpdateFrame)
	assert.EqualValues(t, 5, wu.StreamID)
	assert.EqualValues(t, 1000, wu.Increment)
}

func TestWindowUpdateZeroIncrementIsError(t *testing.T) {
	buf := EncodeWindowUpdate(nil, 5, 0)
	_, _, err := parseFrame(buf, 16384)
	require.Error(t, err)
}

func TestFrameLargerThanMaxFrameSizeErrors(t *testing.T) {
	buf := EncodeData(nil, 1, make([]byte, 100), false)
	_, _, err := parseFrame(buf, 50)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeFrameSize, ce.Code)
}

func TestUnknownFrameTypePassesThrough(t *testing.T) {
	var buf []byte
	buf = appendFrame(buf, FrameHeader{Type: FrameType(0xff), StreamID: 1}, []byte{1, 2, 3})
	f, n, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	uf, ok := f.(*UnknownFrame)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, uf.Payload)
}

// TestSegmentDataExactByteCounts checks the oversize-DATA case: a
// 30000-byte body over a 16384 max frame size splits into a
// 16384-byte frame and a 13616-byte frame.
func TestSegmentDataExactByteCounts(t *testing.T) {
	data := make([]byte, 30000)
	buf := SegmentData(nil, 1, data, 16384, true)

	f1, n1, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	df1 := f1.(*DataFrame)
	assert.Len(t, df1.Data, 16384)
	assert.False(t, df1.EndStream)

	f2, n2, err := parseFrame(buf[n1:], 16384)
	require.NoError(t, err)
	df2 := f2.(*DataFrame)
	assert.Len(t, df2.Data, 13616)
	assert.True(t, df2.EndStream)
	assert.Equal(t, len(buf), n1+n2)
}

func TestSegmentHeadersSplitsIntoContinuation(t *testing.T) {
	block := make([]byte, 40)
	for i := range block {
		block[i] = byte(i)
	}
	buf := SegmentHeaders(nil, 1, block, 16, true)

	f1, n1, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	hf := f1.(*HeadersFrame)
	assert.Len(t, hf.BlockFragment, 16)
	assert.False(t, hf.EndHeaders)
	assert.True(t, hf.EndStream)

	f2, n2, err := parseFrame(buf[n1:], 16384)
	require.NoError(t, err)
	cf := f2.(*ContinuationFrame)
	assert.Len(t, cf.BlockFragment, 16)
	assert.False(t, cf.EndHeaders)

	f3, _, err := parseFrame(buf[n1+n2:], 16384)
	require.NoError(t, err)
	cf2 := f3.(*ContinuationFrame)
	assert.Len(t, cf2.BlockFragment, 8)
	assert.True(t, cf2.EndHeaders)

	var reassembled []byte
	reassembled = append(reassembled, hf.BlockFragment...)
	reassembled = append(reassembled, cf.BlockFragment...)
	reassembled = append(reassembled, cf2.BlockFragment...)
	assert.Equal(t, block, reassembled)
}

func TestSegmentPushPromiseSplitsIntoContinuation(t *testing.T) {
	block := make([]byte, 40)
	for i := range block {
		block[i] = byte(i)
	}
	buf := SegmentPushPromise(nil, 1, 2, block, 20)

	f1, n1, err := parseFrame(buf, 16384)
	require.NoError(t, err)
	pf := f1.(*PushPromiseFrame)
	assert.Equal(t, uint32(2), pf.PromisedStreamID)
	assert.Len(t, pf.BlockFragment, 16) // 20 - 4 octets for the promised stream id
	assert.False(t, pf.EndHeaders)

	f2, n2, err := parseFrame(buf[n1:], 16384)
	require.NoError(t, err)
	cf := f2.(*ContinuationFrame)
	assert.Equal(t, uint32(1), cf.StreamID) // CONTINUATION carries the associated stream's id
	assert.Len(t, cf.BlockFragment, 20)
	assert.False(t, cf.EndHeaders)

	f3, _, err := parseFrame(buf[n1+n2:], 16384)
	require.NoError(t, err)
	cf2 := f3.(*ContinuationFrame)
	assert.Len(t, cf2.BlockFragment, 4)
	assert.True(t, cf2.EndHeaders)

	var reassembled []byte
	reassembled = append(reassembled, pf.BlockFragment...)
	reassembled = append(reassembled, cf.BlockFragment...)
	reassembled = append(reassembled, cf2.BlockFragment...)
	assert.Equal(t, block, reassembled)
}
