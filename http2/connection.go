package http2

import (
	"errors"

	"github.com/vearne/simplelog"

	"github.com/mt21625457/http2-parse/hpack"
)

// Role distinguishes which end of the connection this engine is
// playing, since stream-id parity and who sends the preface depend on
// it (RFC 7540 §5.1.1, §3.5).
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

// Config configures a Connection. LocalSettings overrides the RFC
// 7540 defaults for the settings we advertise; zero numeric fields
// keep the default. EnablePush is taken as given: its zero value,
// false, is advertised as SETTINGS_ENABLE_PUSH=0, so the peer may push
// only when LocalSettings.EnablePush is true. MaxDecodedStringLen bounds any single HPACK string literal
// (0 selects hpack.DefaultMaxDecodedStringLen). YAML-driven
// configuration loading lives entirely outside this package, in
// cmd/h2probe; Connection itself never touches an encoding format.
type Config struct {
	Role                Role
	LocalSettings       Settings
	MaxDecodedStringLen int
	Logger              Logger
}

// Logger is the narrow slice of vearne/simplelog's package-level API
// the engine exercises; passing nil disables logging entirely (gorox's
// web_server_http2.go instead calls package-level Printf gated by
// DebugLevel()).
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// simplelogAdapter wires github.com/vearne/simplelog's package-level
// functions into the Logger interface.
type simplelogAdapter struct{}

func (simplelogAdapter) Debug(format string, args ...interface{}) { simplelog.Debug(format, args...) }
func (simplelogAdapter) Info(format string, args ...interface{})  { simplelog.Info(format, args...) }
func (simplelogAdapter) Warn(format string, args ...interface{})  { simplelog.Warn(format, args...) }
func (simplelogAdapter) Error(format string, args ...interface{}) { simplelog.Error(format, args...) }

// nopLogger discards everything; NewConnection uses it when
// Config.Logger is nil.
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// DefaultLogger wires a connection's logging through simplelog when
// set as Config.Logger.
var DefaultLogger Logger = simplelogAdapter{}

// Callbacks delivers decoded protocol events to the application. Every
// field is optional; a nil callback silently discards that event.
type Callbacks struct {
	OnHeaders       func(streamID uint32, fields []hpack.HeaderField, endStream bool)
	OnData          func(streamID uint32, data []byte, endStream bool)
	OnStreamReset   func(streamID uint32, code ErrorCode)
	OnGoAway        func(lastStreamID uint32, code ErrorCode, debugData []byte)
	OnSettingsAcked func()
	OnPingAck       func(data [8]byte)
}

// ErrHeaderListTooLarge is the stream-level error surfaced when a
// decoded header list's running size exceeds local settings'
// MAX_HEADER_LIST_SIZE.
var ErrHeaderListTooLarge = errors.New("http2: decoded header list exceeds MAX_HEADER_LIST_SIZE")

type continuationState struct {
	active           bool
	streamID         uint32
	frameType        FrameType
	promisedStreamID uint32
	block            []byte
	endStream        bool
}

// Connection is the I/O-free HTTP/2 connection engine: FeedBytes takes
// raw bytes read from a transport and drives callbacks; the Send
// methods and the other emitters append to an internal outbound
// buffer drained by TakeOutbound. Nothing here reads or writes a
// socket.
type Connection struct {
	cfg  Config
	role Role

	local  Settings
	remote Settings

	localSettingsInFlight []Settings // sent, awaiting ACK

	prefaceConsumed bool

	streams           map[uint32]*Stream
	highestPeerStream uint32
	nextLocalStream    uint32

	connSendWindow int64
	connRecvWindow int64

	enc *hpack.Encoder
	dec *hpack.Decoder

	cont continuationState

	inbuf []byte
	out   []byte

	goAwaySent     bool
	goAwayReceived bool

	// pendingEncoderCapacity holds a capacity change the peer's
	// SETTINGS_HEADER_TABLE_SIZE requires of our encoder; it is
	// applied and signaled via a Dynamic Table Size Update instruction
	// prefixed onto the next header block we encode, since that
	// instruction must travel inside an HPACK byte stream rather than
	// as a bare connection-level write.
	pendingEncoderCapacity *uint32

	cb  Callbacks
	log Logger

	// Send groups the directive-emitting methods as Connection.Send.Xxx.
	Send Sender
}

// NewConnection creates a connection engine for the given role. Call
// SendInitialSettings once before any other Send method to kick off
// the handshake.
func NewConnection(cfg Config, cb Callbacks) *Connection {
	local := cfg.LocalSettings
	def := DefaultSettings()
	if local.HeaderTableSize == 0 {
		local.HeaderTableSize = def.HeaderTableSize
	}
	if local.InitialWindowSize == 0 {
		local.InitialWindowSize = def.InitialWindowSize
	}
	if local.MaxFrameSize == 0 {
		local.MaxFrameSize = def.MaxFrameSize
	}

	maxStr := cfg.MaxDecodedStringLen
	if maxStr == 0 {
		maxStr = hpack.DefaultMaxDecodedStringLen
	}

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	c := &Connection{
		cfg:            cfg,
		role:           cfg.Role,
		local:          local,
		remote:         def,
		streams:        make(map[uint32]*Stream),
		connSendWindow: defaultConnWindow,
		connRecvWindow: defaultConnWindow,
		enc:            hpack.NewEncoder(def.HeaderTableSize),
		dec:            hpack.NewDecoder(local.HeaderTableSize, maxStr),
		cb:             cb,
		log:            logger,
	}
	if cfg.Role == RoleClient {
		c.nextLocalStream = 1
	} else {
		c.nextLocalStream = 2
	}
	c.Send = Sender{c}
	return c
}

// TakeOutbound returns and clears all bytes queued for writing to the
// transport since the last call.
func (c *Connection) TakeOutbound() []byte {
	out := c.out
	c.out = nil
	return out
}

// FeedBytes appends input to the connection's internal buffer,
// integrates every complete frame it holds (and, for a server, the
// leading connection preface) and returns the number of bytes this
// call integrated, counting bytes of a frame begun in an earlier call.
// Bytes of a trailing partial frame stay buffered and are counted by
// the call that completes their frame; the caller does not re-submit
// them. A stream-level error resets that stream and processing goes
// on; a connection-level error stops processing and is returned.
func (c *Connection) FeedBytes(input []byte) (consumed int, err error) {
	c.inbuf = append(c.inbuf, input...)
	total := 0

	if c.role == RoleServer && !c.prefaceConsumed {
		if len(c.inbuf) < len(Preface) {
			return 0, nil
		}
		if string(c.inbuf[:len(Preface)]) != string(Preface) {
			return 0, &ConnError{Code: ErrCodeProtocol, Reason: "bad connection preface"}
		}
		c.inbuf = c.inbuf[len(Preface):]
		c.prefaceConsumed = true
		total += len(Preface)
	}

	for {
		f, n, ferr := parseFrame(c.inbuf, c.local.MaxFrameSize)
		var se *StreamError
		if ferr != nil && errors.As(ferr, &se) {
			// parseFrame raises a stream-level error only once the whole
			// frame is buffered: drop that frame and keep going.
			n = frameHeaderLen + int(decodeFrameHeader(c.inbuf).Length)
			c.inbuf = c.inbuf[n:]
			total += n
			c.handleFrameError(ferr)
			continue
		}
		if ferr != nil {
			return total, c.handleFrameError(ferr)
		}
		if f == nil {
			break
		}
		c.inbuf = c.inbuf[n:]
		total += n
		if err := c.dispatch(f); err != nil {
			if herr := c.handleFrameError(err); herr != nil {
				return total, herr
			}
		}
	}
	return total, nil
}

// handleFrameError emits the appropriate directive for a ConnError
// (GOAWAY) or StreamError (RST_STREAM). It returns a ConnError
// unwrapped so the transport layer can decide whether to keep reading,
// returns nil for a StreamError since the connection continues, and
// returns any other error as is.
func (c *Connection) handleFrameError(err error) error {
	var ce *ConnError
	var se *StreamError
	switch {
	case errors.As(err, &ce):
		c.log.Error("http2: connection error: %s", ce.Reason)
		c.goAway(ce.Code, []byte(ce.Reason))
		return ce
	case errors.As(err, &se):
		c.log.Warn("http2: stream %d error: %s", se.StreamID, se.Reason)
		c.rstStream(se.StreamID, se.Code)
		return nil
	default:
		return err
	}
}

func (c *Connection) dispatch(f Frame) error {
	if c.cont.active {
		switch v := f.(type) {
		case *ContinuationFrame:
			return c.handleContinuation(v)
		default:
			return &ConnError{Code: ErrCodeProtocol, Reason: "expected CONTINUATION, got another frame type"}
		}
	}
	switch v := f.(type) {
	case *DataFrame:
		return c.handleData(v)
	case *HeadersFrame:
		return c.handleHeaders(v)
	case *PriorityFrame:
		return nil
	case *RSTStreamFrame:
		return c.handleRSTStream(v)
	case *SettingsFrame:
		return c.handleSettings(v)
	case *PushPromiseFrame:
		return c.handlePushPromise(v)
	case *PingFrame:
		return c.handlePing(v)
	case *GoAwayFrame:
		return c.handleGoAway(v)
	case *WindowUpdateFrame:
		return c.handleWindowUpdate(v)
	case *ContinuationFrame:
		return &ConnError{Code: ErrCodeProtocol, Reason: "CONTINUATION without a preceding HEADERS/PUSH_PROMISE"}
	case *UnknownFrame:
		return nil // unrecognized frame types are ignored, per RFC 7540 §4.1
	}
	return nil
}

func (c *Connection) streamFor(id uint32, createIfIdle bool) *Stream {
	s, ok := c.streams[id]
	if ok {
		return s
	}
	if !createIfIdle {
		return nil
	}
	s = newStream(id, int64(c.remote.InitialWindowSize), int64(c.local.InitialWindowSize), StateIdle)
	c.streams[id] = s
	if id > c.highestPeerStream {
		c.highestPeerStream = id
	}
	return s
}

func (c *Connection) handleData(f *DataFrame) error {
	s := c.streamFor(f.StreamID, false)
	if s == nil || s.State == StateClosed {
		return &StreamError{StreamID: f.StreamID, Code: ErrCodeStreamClosed, Reason: "DATA on closed/unknown stream"}
	}
	// f.Length is the frame's wire payload length, padding included;
	// len(f.Data) has already had padding stripped by splitPadded.
	if err := c.consumeRecvWindow(f.StreamID, int64(f.Length)); err != nil {
		return err
	}
	if f.EndStream {
		if err := s.transition(eventRecvEndStream); err != nil {
			return err
		}
	}
	if c.cb.OnData != nil {
		c.cb.OnData(f.StreamID, f.Data, f.EndStream)
	}
	return nil
}

func (c *Connection) handleHeaders(f *HeadersFrame) error {
	s := c.streamFor(f.StreamID, true)
	if err := s.transition(eventRecvHeaders); err != nil {
		return err
	}
	if f.EndHeaders {
		return c.finishHeaderBlock(f.StreamID, f.BlockFragment, f.EndStream, 0)
	}
	c.cont = continuationState{
		active:    true,
		streamID:  f.StreamID,
		frameType: FrameHeaders,
		block:     append([]byte(nil), f.BlockFragment...),
		endStream: f.EndStream,
	}
	return nil
}

func (c *Connection) handlePushPromise(f *PushPromiseFrame) error {
	if !c.local.EnablePush {
		return &ConnError{Code: ErrCodeProtocol, Reason: "PUSH_PROMISE received with push disabled"}
	}
	s := c.streamFor(f.PromisedStreamID, true)
	if err := s.transition(eventRecvPushPromise); err != nil {
		return err
	}
	if f.EndHeaders {
		return c.finishHeaderBlock(f.PromisedStreamID, f.BlockFragment, false, f.PromisedStreamID)
	}
	c.cont = continuationState{
		active:           true,
		streamID:         f.StreamID,
		frameType:        FramePushPromise,
		promisedStreamID: f.PromisedStreamID,
		block:            append([]byte(nil), f.BlockFragment...),
	}
	return nil
}

func (c *Connection) handleContinuation(f *ContinuationFrame) error {
	if f.StreamID != c.cont.streamID {
		return &ConnError{Code: ErrCodeProtocol, Reason: "CONTINUATION stream id mismatch"}
	}
	c.cont.block = append(c.cont.block, f.BlockFragment...)
	if !f.EndHeaders {
		return nil
	}
	targetStream := c.cont.streamID
	promised := c.cont.promisedStreamID
	block := c.cont.block
	endStream := c.cont.endStream
	c.cont = continuationState{}
	if promised != 0 {
		return c.finishHeaderBlock(promised, block, false, promised)
	}
	return c.finishHeaderBlock(targetStream, block, endStream, 0)
}

// finishHeaderBlock decodes a complete header block and, respecting
// the resolved MAX_HEADER_LIST_SIZE open question, either delivers or
// suppresses it. deliverStreamID is the stream the decoded fields
// belong to (the promised stream id for PUSH_PROMISE).
func (c *Connection) finishHeaderBlock(deliverStreamID uint32, block []byte, endStream bool, _ uint32) error {
	var fields []hpack.HeaderField
	var runningSize uint32
	tooLarge := false
	err := c.dec.Decode(block, func(f hpack.HeaderField) {
		runningSize += uint32(len(f.Name)) + uint32(len(f.Value)) + 32
		if c.local.MaxHeaderListSize != 0 && runningSize > c.local.MaxHeaderListSize {
			tooLarge = true
			return
		}
		fields = append(fields, f)
	})
	if err != nil {
		return &ConnError{Code: ErrCodeCompression, Reason: err.Error()}
	}
	if tooLarge {
		c.log.Warn("http2: stream %d header list exceeds MAX_HEADER_LIST_SIZE", deliverStreamID)
		return &StreamError{StreamID: deliverStreamID, Code: ErrCodeRefusedStream, Reason: ErrHeaderListTooLarge.Error()}
	}
	if endStream {
		if s := c.streams[deliverStreamID]; s != nil {
			if err := s.transition(eventRecvEndStream); err != nil {
				return err
			}
		}
	}
	if c.cb.OnHeaders != nil {
		c.cb.OnHeaders(deliverStreamID, fields, endStream)
	}
	return nil
}

func (c *Connection) handleRSTStream(f *RSTStreamFrame) error {
	s := c.streamFor(f.StreamID, false)
	if s == nil {
		return &ConnError{Code: ErrCodeProtocol, Reason: "RST_STREAM on idle stream"}
	}
	if err := s.transition(eventRecvRST); err != nil {
		return err
	}
	s.rstRecv = true
	if c.cb.OnStreamReset != nil {
		c.cb.OnStreamReset(f.StreamID, f.ErrorCode)
	}
	return nil
}

func (c *Connection) handleSettings(f *SettingsFrame) error {
	if f.ACK {
		if len(c.localSettingsInFlight) > 0 {
			c.localSettingsInFlight = c.localSettingsInFlight[1:]
		}
		if c.cb.OnSettingsAcked != nil {
			c.cb.OnSettingsAcked()
		}
		return nil
	}
	oldInitWindow := c.remote.InitialWindowSize
	for _, s := range f.Settings {
		if err := c.remote.applySetting(s.ID, s.Value); err != nil {
			return err
		}
	}
	newCap := c.remote.HeaderTableSize
	c.pendingEncoderCapacity = &newCap
	if c.remote.InitialWindowSize != oldInitWindow {
		delta := int64(c.remote.InitialWindowSize) - int64(oldInitWindow)
		c.applyInitialWindowDelta(delta, true)
	}
	c.log.Debug("http2: applied %d remote settings", len(f.Settings))
	c.out = EncodeSettingsACK(c.out)
	return nil
}

func (c *Connection) handlePing(f *PingFrame) error {
	if f.ACK {
		if c.cb.OnPingAck != nil {
			c.cb.OnPingAck(f.Data)
		}
		return nil
	}
	c.out = EncodePing(c.out, f.Data, true)
	return nil
}

func (c *Connection) handleGoAway(f *GoAwayFrame) error {
	c.goAwayReceived = true
	if c.cb.OnGoAway != nil {
		c.cb.OnGoAway(f.LastStreamID, f.ErrorCode, f.DebugData)
	}
	return nil
}

func (c *Connection) handleWindowUpdate(f *WindowUpdateFrame) error {
	if f.StreamID == 0 {
		if c.connSendWindow+int64(f.Increment) > maxWindowSize {
			return &ConnError{Code: ErrCodeFlowControl, Reason: "connection WINDOW_UPDATE overflow"}
		}
		c.connSendWindow += int64(f.Increment)
		return nil
	}
	s := c.streamFor(f.StreamID, false)
	if s == nil || (s.State != StateOpen && s.State != StateHalfClosedRemote) {
		return &ConnError{Code: ErrCodeProtocol, Reason: "WINDOW_UPDATE on a stream not open or half-closed(remote)"}
	}
	if s.sendWindow+int64(f.Increment) > maxWindowSize {
		return &StreamError{StreamID: f.StreamID, Code: ErrCodeFlowControl, Reason: "stream WINDOW_UPDATE overflow"}
	}
	s.sendWindow += int64(f.Increment)
	return nil
}

// --- outbound API ---

// SendInitialSettings queues the opening SETTINGS frame (and, for a
// client, the connection preface ahead of it).
func (c *Connection) SendInitialSettings() {
	if c.role == RoleClient {
		c.out = append(c.out, Preface...)
	}
	def := DefaultSettings()
	settings := make([]Setting, 0, 6)
	add := func(id SettingID, v, d uint32) {
		if v != d {
			settings = append(settings, Setting{ID: id, Value: v})
		}
	}
	add(SettingHeaderTableSize, c.local.HeaderTableSize, def.HeaderTableSize)
	add(SettingInitialWindowSize, c.local.InitialWindowSize, def.InitialWindowSize)
	add(SettingMaxFrameSize, c.local.MaxFrameSize, def.MaxFrameSize)
	add(SettingMaxConcurrentStreams, c.local.MaxConcurrentStreams, def.MaxConcurrentStreams)
	add(SettingMaxHeaderListSize, c.local.MaxHeaderListSize, def.MaxHeaderListSize)
	if !c.local.EnablePush {
		settings = append(settings, Setting{ID: SettingEnablePush, Value: 0})
	}
	c.localSettingsInFlight = append(c.localSettingsInFlight, c.local)
	c.out = EncodeSettings(c.out, settings)
	c.log.Info("http2: sent initial SETTINGS (%d non-default values)", len(settings))
}

// Headers opens (or continues on an existing) stream by encoding
// fields and queuing HEADERS (+ CONTINUATION as needed).
func (s Sender) Headers(streamID uint32, fields []hpack.HeaderField, endStream bool) error {
	return s.c.sendHeaders(streamID, fields, endStream)
}

func (c *Connection) sendHeaders(streamID uint32, fields []hpack.HeaderField, endStream bool) error {
	s := c.streams[streamID]
	if s == nil {
		s = newStream(streamID, int64(c.remote.InitialWindowSize), int64(c.local.InitialWindowSize), StateIdle)
		c.streams[streamID] = s
		if streamID >= c.nextLocalStream {
			c.nextLocalStream = streamID + 2
		}
	}
	if err := s.transition(eventSendHeaders); err != nil {
		return err
	}
	if endStream {
		if err := s.transition(eventSendEndStream); err != nil {
			return err
		}
	}
	var block []byte
	if c.pendingEncoderCapacity != nil {
		block = c.enc.SetCapacity(block, *c.pendingEncoderCapacity)
		c.pendingEncoderCapacity = nil
	}
	block = c.enc.Encode(block, fields)
	c.out = SegmentHeaders(c.out, streamID, block, c.remote.MaxFrameSize, endStream)
	return nil
}

// Data queues DATA frames for streamID, honoring (but not blocking on)
// the current flow-control windows: it is the caller's responsibility
// to call CanSend first and retry later on WINDOW_UPDATE if the
// window is insufficient.
func (s Sender) Data(streamID uint32, data []byte, endStream bool) error {
	return s.c.sendData(streamID, data, endStream)
}

func (c *Connection) sendData(streamID uint32, data []byte, endStream bool) error {
	s := c.streams[streamID]
	if s == nil {
		return &StreamError{StreamID: streamID, Code: ErrCodeStreamClosed, Reason: "SendData on unknown stream"}
	}
	if !c.canSend(streamID, int64(len(data))) {
		return &StreamError{StreamID: streamID, Code: ErrCodeFlowControl, Reason: "insufficient flow-control window"}
	}
	c.consumeSendWindow(streamID, int64(len(data)))
	if endStream {
		if err := s.transition(eventSendEndStream); err != nil {
			return err
		}
	}
	c.out = SegmentData(c.out, streamID, data, c.remote.MaxFrameSize, endStream)
	return nil
}

// CanSend reports whether n bytes may be sent on streamID right now.
func (c *Connection) CanSend(streamID uint32, n int) bool {
	return c.canSend(streamID, int64(n))
}

// Settings queues an additional SETTINGS frame after the initial
// handshake one, applying each value to our own advertised settings
// and propagating an INITIAL_WINDOW_SIZE change to existing streams'
// receive windows, mirroring how handleSettings updates the peer's
// advertised values on receipt (RFC 7540 §6.9.2).
func (s Sender) Settings(list []Setting) error {
	return s.c.sendSettings(list)
}

func (c *Connection) sendSettings(list []Setting) error {
	oldInitWindow := c.local.InitialWindowSize
	for _, st := range list {
		if err := c.local.applySetting(st.ID, st.Value); err != nil {
			return err
		}
	}
	if c.local.InitialWindowSize != oldInitWindow {
		delta := int64(c.local.InitialWindowSize) - int64(oldInitWindow)
		c.applyInitialWindowDelta(delta, false)
	}
	c.localSettingsInFlight = append(c.localSettingsInFlight, c.local)
	c.out = EncodeSettings(c.out, list)
	return nil
}

// Priority queues a PRIORITY frame. RFC 7540 §5.3 permits PRIORITY in
// any stream state, including idle, so it bypasses the stream state
// machine entirely.
func (s Sender) Priority(streamID uint32, p PriorityParam) {
	s.c.out = EncodePriority(s.c.out, streamID, p)
}

// PushPromise queues a PUSH_PROMISE announcing promisedID on behalf of
// assocID, transitioning promisedID from idle to reserved(local) (RFC
// 7540 §8.2, §5.1).
func (s Sender) PushPromise(assocID, promisedID uint32, fields []hpack.HeaderField) error {
	return s.c.sendPushPromise(assocID, promisedID, fields)
}

func (c *Connection) sendPushPromise(assocID, promisedID uint32, fields []hpack.HeaderField) error {
	if !c.remote.EnablePush {
		return &ConnError{Code: ErrCodeProtocol, Reason: "PUSH_PROMISE with peer's ENABLE_PUSH disabled"}
	}
	ps := newStream(promisedID, int64(c.remote.InitialWindowSize), int64(c.local.InitialWindowSize), StateIdle)
	if err := ps.transition(eventSendPushPromise); err != nil {
		return err
	}
	c.streams[promisedID] = ps
	var block []byte
	if c.pendingEncoderCapacity != nil {
		block = c.enc.SetCapacity(block, *c.pendingEncoderCapacity)
		c.pendingEncoderCapacity = nil
	}
	block = c.enc.Encode(block, fields)
	c.out = SegmentPushPromise(c.out, assocID, promisedID, block, c.remote.MaxFrameSize)
	return nil
}

// Sender groups the directive-emitting methods, reachable as
// Connection.Send.
type Sender struct{ c *Connection }

// WindowUpdate emits a literal WINDOW_UPDATE with the given increment
// and does not touch any receive-window accounting. Use
// ReclaimReceiveWindow to do both.
func (s Sender) WindowUpdate(streamID, increment uint32) {
	s.c.out = EncodeWindowUpdate(s.c.out, streamID, increment)
}

// ReclaimReceiveWindow increments the local receive-window accounting
// for n bytes the application has freed and emits the corresponding
// WINDOW_UPDATE(s): one for the stream (if streamID != 0) and one for
// the connection.
func (c *Connection) ReclaimReceiveWindow(streamID uint32, n uint32) {
	c.connRecvWindow += int64(n)
	c.out = EncodeWindowUpdate(c.out, 0, n)
	if streamID != 0 {
		if s, ok := c.streams[streamID]; ok {
			s.recvWindow += int64(n)
		}
		c.out = EncodeWindowUpdate(c.out, streamID, n)
	}
}

// Ping queues a PING frame.
func (s Sender) Ping(data [8]byte) {
	s.c.out = EncodePing(s.c.out, data, false)
}

func (c *Connection) rstStream(streamID uint32, code ErrorCode) {
	if s := c.streams[streamID]; s != nil {
		s.rstSent = true
		s.State = StateClosed
	}
	c.out = EncodeRSTStream(c.out, streamID, code)
}

// RSTStream queues a RST_STREAM for streamID.
func (s Sender) RSTStream(streamID uint32, code ErrorCode) {
	s.c.rstStream(streamID, code)
}

func (c *Connection) goAway(code ErrorCode, debugData []byte) {
	if c.goAwaySent {
		return
	}
	c.goAwaySent = true
	c.out = EncodeGoAway(c.out, c.highestPeerStream, code, debugData)
}

// GoAway queues a GOAWAY announcing code, at most once per connection.
func (s Sender) GoAway(code ErrorCode, debugData []byte) {
	s.c.goAway(code, debugData)
}
