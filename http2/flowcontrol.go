package http2

// Flow control is two-level (RFC 7540 §6.9): a connection-wide window
// and one window per stream, each signed 31-bit (tracked here as
// int64 so a SETTINGS-driven delta can legally carry a window
// negative, per §6.9.2). The connection-level window's initial value
// is always 65535 and is never touched by SETTINGS_INITIAL_WINDOW_SIZE;
// only stream-level windows move with it.
const defaultConnWindow = 65535

// applyInitialWindowDelta adds delta to every non-closed stream's window
// selected by which side's window this settings change affects: our
// own outbound (remote-controlled receive capacity, when the PEER's
// INITIAL_WINDOW_SIZE changes) or our own inbound accounting (when WE
// change our advertised INITIAL_WINDOW_SIZE).
func (c *Connection) applyInitialWindowDelta(delta int64, send bool) {
	for _, s := range c.streams {
		if s.State == StateClosed {
			continue
		}
		if send {
			s.sendWindow += delta
		} else {
			s.recvWindow += delta
		}
	}
}

// canSend reports whether n bytes of DATA may be sent on stream id
// right now without exceeding either window.
func (c *Connection) canSend(streamID uint32, n int64) bool {
	if c.connSendWindow < n {
		return false
	}
	s, ok := c.streams[streamID]
	if !ok {
		return false
	}
	return s.sendWindow >= n
}

// consumeSendWindow deducts n bytes from both the connection and
// stream send windows after a DATA frame has actually been queued.
func (c *Connection) consumeSendWindow(streamID uint32, n int64) {
	c.connSendWindow -= n
	if s, ok := c.streams[streamID]; ok {
		s.sendWindow -= n
	}
}

// consumeRecvWindow deducts n bytes (the frame's full wire payload
// length, padding included) from both receive windows after a DATA
// frame has been accepted from the peer. The caller must later free
// that capacity back via ReclaimReceiveWindow once the application
// has consumed the bytes. Either window going negative is a
// connection-level flow-control error (RFC 7540 §6.9.1).
func (c *Connection) consumeRecvWindow(streamID uint32, n int64) error {
	if c.connRecvWindow-n < 0 {
		return &ConnError{Code: ErrCodeFlowControl, Reason: "DATA exceeds connection receive window"}
	}
	s, ok := c.streams[streamID]
	if ok && s.recvWindow-n < 0 {
		return &ConnError{Code: ErrCodeFlowControl, Reason: "DATA exceeds stream receive window"}
	}
	c.connRecvWindow -= n
	if ok {
		s.recvWindow -= n
	}
	return nil
}
