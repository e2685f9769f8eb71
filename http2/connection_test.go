package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mt21625457/http2-parse/hpack"
)

// pump drains from's outbound buffer and feeds it into to, returning
// any error FeedBytes reports.
func pump(t *testing.T, from, to *Connection) {
	t.Helper()
	out := from.TakeOutbound()
	if len(out) == 0 {
		return
	}
	n, err := to.FeedBytes(out)
	require.NoError(t, err)
	require.Equal(t, len(out), n)
}

func newPair(t *testing.T) (client, server *Connection) {
	t.Helper()
	var clientHeaders, serverHeaders []hpack.HeaderField
	client = NewConnection(Config{Role: RoleClient}, Callbacks{
		OnHeaders: func(id uint32, fields []hpack.HeaderField, endStream bool) { clientHeaders = fields },
	})
	server = NewConnection(Config{Role: RoleServer}, Callbacks{
		OnHeaders: func(id uint32, fields []hpack.HeaderField, endStream bool) { serverHeaders = fields },
	})
	_ = clientHeaders
	_ = serverHeaders
	return client, server
}

func TestHandshakeExchangesSettings(t *testing.T) {
	client, server := newPair(t)
	client.SendInitialSettings()
	server.SendInitialSettings()

	pump(t, client, server)
	pump(t, server, client)

	// the client's SETTINGS ACK is now pending in its outbound buffer;
	// the server's went out right ahead of its own SETTINGS
	pump(t, client, server)
	pump(t, server, client)

	assert.Empty(t, client.localSettingsInFlight)
	assert.Empty(t, server.localSettingsInFlight)
}

func TestRequestResponseHeadersRoundTrip(t *testing.T) {
	var gotOnServer []hpack.HeaderField
	var gotOnClient []hpack.HeaderField
	var serverSawEndStream bool

	client := NewConnection(Config{Role: RoleClient}, Callbacks{
		OnHeaders: func(id uint32, fields []hpack.HeaderField, endStream bool) { gotOnClient = fields },
	})
	server := NewConnection(Config{Role: RoleServer}, Callbacks{
		OnHeaders: func(id uint32, fields []hpack.HeaderField, endStream bool) {
			gotOnServer = fields
			serverSawEndStream = endStream
		},
	})

	client.SendInitialSettings()
	pump(t, client, server)
	server.SendInitialSettings()
	pump(t, server, client)
	pump(t, client, server) // client's SETTINGS ACK
	pump(t, server, client) // nothing left: the server's ACK went out with its SETTINGS

	reqHeaders := []hpack.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/"},
		{Name: ":scheme", Value: "https"},
		{Name: ":authority", Value: "example.com"},
	}
	require.NoError(t, client.Send.Headers(1, reqHeaders, true))
	pump(t, client, server)
	assert.Equal(t, reqHeaders, gotOnServer)
	assert.True(t, serverSawEndStream)

	respHeaders := []hpack.HeaderField{
		{Name: ":status", Value: "200"},
		{Name: "content-type", Value: "text/plain"},
	}
	require.NoError(t, server.Send.Headers(1, respHeaders, true))
	pump(t, server, client)
	assert.Equal(t, respHeaders, gotOnClient)

	assert.Equal(t, StateClosed, client.streams[1].State)
	assert.Equal(t, StateClosed, server.streams[1].State)
}

func TestDataFlowControlBlocksThenUnblocksViaWindowUpdate(t *testing.T) {
	client, server := newPair(t)
	client.SendInitialSettings()
	server.SendInitialSettings()
	pump(t, client, server)
	pump(t, server, client)
	pump(t, client, server)
	pump(t, server, client)

	require.NoError(t, client.Send.Headers(1, []hpack.HeaderField{{Name: ":method", Value: "POST"}}, false))
	pump(t, client, server)

	big := make([]byte, 70000) // larger than the 65535 default window
	assert.False(t, client.CanSend(1, len(big)))

	chunk := big[:60000]
	require.NoError(t, client.Send.Data(1, chunk, false))
	pump(t, client, server)

	assert.False(t, client.CanSend(1, 20000))

	server.ReclaimReceiveWindow(1, 20000)
	pump(t, server, client)

	assert.True(t, client.CanSend(1, 20000))
}

func TestPingRoundTrip(t *testing.T) {
	client, server := newPair(t)
	var acked [8]byte
	client.cb.OnPingAck = func(d [8]byte) { acked = d }

	client.Send.Ping([8]byte{9, 9, 9, 9, 9, 9, 9, 9})
	pump(t, client, server)
	pump(t, server, client)

	assert.Equal(t, [8]byte{9, 9, 9, 9, 9, 9, 9, 9}, acked)
}

func TestGoAwayRoundTripCallback(t *testing.T) {
	client, server := newPair(t)
	var lastStream uint32
	var code ErrorCode
	server.cb.OnGoAway = func(ls uint32, c ErrorCode, debug []byte) {
		lastStream = ls
		code = c
	}
	client.Send.GoAway(ErrCodeNo, nil)
	pump(t, client, server)

	assert.Zero(t, lastStream)
	assert.Equal(t, ErrCodeNo, code)
}

func TestWindowUpdateDoesNotTouchReceiveAccounting(t *testing.T) {
	client, _ := newPair(t)
	client.streams[1] = newStream(1, 65535, 65535, StateOpen)
	before := client.streams[1].recvWindow
	client.Send.WindowUpdate(1, 1000)
	assert.Equal(t, before, client.streams[1].recvWindow)
	assert.NotEmpty(t, client.out)
}

func TestDataRecvAccountsForPaddingAndEnforcesWindow(t *testing.T) {
	client, server := newPair(t)
	client.SendInitialSettings()
	server.SendInitialSettings()
	pump(t, client, server)
	pump(t, server, client)
	pump(t, client, server)
	pump(t, server, client)

	require.NoError(t, client.Send.Headers(1, []hpack.HeaderField{{Name: ":method", Value: "POST"}}, false))
	pump(t, client, server)

	// 1-byte pad-length prefix + 100 bytes of data + 50 bytes of
	// padding: the wire payload is 151 bytes even though only 100 are
	// delivered to OnData.
	const padLen = 50
	payload := make([]byte, 0, 1+100+padLen)
	payload = append(payload, padLen)
	payload = append(payload, make([]byte, 100)...)
	payload = append(payload, make([]byte, padLen)...)
	raw := appendFrame(nil, FrameHeader{Type: FrameData, Flags: FlagPadded, StreamID: 1}, payload)

	beforeConn := server.connRecvWindow
	beforeStream := server.streams[1].recvWindow
	n, err := server.FeedBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, beforeConn-151, server.connRecvWindow)
	assert.Equal(t, beforeStream-151, server.streams[1].recvWindow)
}

func TestDataRecvExceedingWindowIsConnError(t *testing.T) {
	client, server := newPair(t)
	client.SendInitialSettings()
	server.SendInitialSettings()
	pump(t, client, server)
	pump(t, server, client)
	pump(t, client, server)
	pump(t, server, client)

	require.NoError(t, client.Send.Headers(1, []hpack.HeaderField{{Name: ":method", Value: "POST"}}, false))
	pump(t, client, server)

	server.streams[1].recvWindow = 10
	raw := EncodeData(nil, 1, make([]byte, 20), false)
	_, err := server.FeedBytes(raw)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeFlowControl, ce.Code)
}

func TestWindowUpdateOnIdleStreamIsProtocolError(t *testing.T) {
	conn := NewConnection(Config{Role: RoleClient}, Callbacks{})
	raw := EncodeWindowUpdate(nil, 7, 100)
	_, err := conn.FeedBytes(raw)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeProtocol, ce.Code)
}

func TestRSTStreamOnIdleStreamIsProtocolError(t *testing.T) {
	conn := NewConnection(Config{Role: RoleClient}, Callbacks{})
	raw := EncodeRSTStream(nil, 7, ErrCodeCancel)
	_, err := conn.FeedBytes(raw)
	var ce *ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeProtocol, ce.Code)
}

func TestRSTStreamOnOpenStreamRoutesThroughStateMachine(t *testing.T) {
	client, server := newPair(t)
	client.SendInitialSettings()
	server.SendInitialSettings()
	pump(t, client, server)
	pump(t, server, client)
	pump(t, client, server)
	pump(t, server, client)

	require.NoError(t, client.Send.Headers(1, []hpack.HeaderField{{Name: ":method", Value: "GET"}}, false))
	pump(t, client, server)

	var resetCode ErrorCode
	server.cb.OnStreamReset = func(id uint32, code ErrorCode) { resetCode = code }
	raw := EncodeRSTStream(nil, 1, ErrCodeCancel)
	n, err := server.FeedBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, StateClosed, server.streams[1].State)
	assert.Equal(t, ErrCodeCancel, resetCode)
}

func TestSenderSettingsUpdatesLocalSettingsAndWindows(t *testing.T) {
	client, server := newPair(t)
	client.SendInitialSettings()
	server.SendInitialSettings()
	pump(t, client, server)
	pump(t, server, client)
	pump(t, client, server)
	pump(t, server, client)

	require.NoError(t, client.Send.Headers(1, []hpack.HeaderField{{Name: ":method", Value: "GET"}}, false))
	pump(t, client, server)

	before := client.streams[1].recvWindow
	require.NoError(t, client.Send.Settings([]Setting{{ID: SettingInitialWindowSize, Value: 100000}}))
	assert.Equal(t, uint32(100000), client.local.InitialWindowSize)
	assert.Equal(t, before+int64(100000-65535), client.streams[1].recvWindow)

	pump(t, client, server)
	pump(t, server, client)
	assert.Empty(t, client.localSettingsInFlight)
}

func TestSenderPriorityIsIgnoredByPeerWithoutCreatingAStream(t *testing.T) {
	client, server := newPair(t)
	client.Send.Priority(3, PriorityParam{StreamDep: 1, Weight: 16})
	pump(t, client, server)

	_, ok := server.streams[3]
	assert.False(t, ok)
}

func TestSenderPushPromiseRoundTrip(t *testing.T) {
	// The client must advertise push as enabled: a zero-valued
	// LocalSettings.EnablePush is sent as SETTINGS_ENABLE_PUSH=0.
	client := NewConnection(Config{Role: RoleClient, LocalSettings: Settings{EnablePush: true}}, Callbacks{})
	_, server := newPair(t)
	client.SendInitialSettings()
	server.SendInitialSettings()
	pump(t, client, server)
	pump(t, server, client)
	pump(t, client, server)
	pump(t, server, client)

	reqHeaders := []hpack.HeaderField{{Name: ":method", Value: "GET"}, {Name: ":path", Value: "/"}}
	require.NoError(t, client.Send.Headers(1, reqHeaders, true))
	pump(t, client, server)

	var pushHeaders []hpack.HeaderField
	client.cb.OnHeaders = func(id uint32, fields []hpack.HeaderField, endStream bool) {
		if id == 2 {
			pushHeaders = fields
		}
	}
	pushFields := []hpack.HeaderField{{Name: ":method", Value: "GET"}, {Name: ":path", Value: "/style.css"}}
	require.NoError(t, server.Send.PushPromise(1, 2, pushFields))
	pump(t, server, client)

	assert.Equal(t, pushFields, pushHeaders)
	assert.Equal(t, StateReservedLocal, server.streams[2].State)
	assert.Equal(t, StateReservedRemote, client.streams[2].State)
}

func TestFeedBytesReturnsExactConsumedOnPartialFrame(t *testing.T) {
	server := NewConnection(Config{Role: RoleServer}, Callbacks{})
	full := append(append([]byte(nil), Preface...), EncodePing(nil, [8]byte{}, false)...)
	n, err := server.FeedBytes(full[:len(Preface)+3])
	require.NoError(t, err)
	assert.Equal(t, len(Preface), n)

	n2, err := server.FeedBytes(full[len(Preface)+3:])
	require.NoError(t, err)
	assert.Equal(t, len(full)-len(Preface)-3, n2)
}
