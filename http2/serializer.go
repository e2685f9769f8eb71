package http2

import "encoding/binary"

// appendFrame writes a frame header followed by payload to dst,
// returning the extended slice. Mirrors gorox's
// http2OutFrame.encodeHeader (web_proto_http2.go), extended here to
// cover the full payload rather than just the 9-byte header gorox
// left as a stub.
func appendFrame(dst []byte, h FrameHeader, payload []byte) []byte {
	h.Length = uint32(len(payload))
	var hdr [frameHeaderLen]byte
	h.encode(hdr[:])
	dst = append(dst, hdr[:]...)
	dst = append(dst, payload...)
	return dst
}

// EncodeData serializes a DATA frame.
func EncodeData(dst []byte, streamID uint32, data []byte, endStream bool) []byte {
	var flags byte
	if endStream {
		flags |= FlagEndStream
	}
	return appendFrame(dst, FrameHeader{Type: FrameData, Flags: flags, StreamID: streamID}, data)
}

// EncodeHeaders serializes a HEADERS frame carrying blockFragment.
// Callers that need CONTINUATION must split the block themselves and
// call EncodeContinuation for the remainder (see SegmentHeaders).
func EncodeHeaders(dst []byte, streamID uint32, blockFragment []byte, endStream, endHeaders bool) []byte {
	var flags byte
	if endStream {
		flags |= FlagEndStream
	}
	if endHeaders {
		flags |= FlagEndHeaders
	}
	return appendFrame(dst, FrameHeader{Type: FrameHeaders, Flags: flags, StreamID: streamID}, blockFragment)
}

// EncodePriority serializes a PRIORITY frame.
func EncodePriority(dst []byte, streamID uint32, p PriorityParam) []byte {
	var payload [5]byte
	raw := p.StreamDep
	if p.Exclusive {
		raw |= 0x80000000
	}
	binary.BigEndian.PutUint32(payload[0:4], raw)
	payload[4] = p.Weight
	return appendFrame(dst, FrameHeader{Type: FramePriority, StreamID: streamID}, payload[:])
}

// EncodeRSTStream serializes a RST_STREAM frame.
func EncodeRSTStream(dst []byte, streamID uint32, code ErrorCode) []byte {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], uint32(code))
	return appendFrame(dst, FrameHeader{Type: FrameRSTStream, StreamID: streamID}, payload[:])
}

// EncodeSettings serializes a non-ACK SETTINGS frame.
func EncodeSettings(dst []byte, settings []Setting) []byte {
	payload := make([]byte, 0, 6*len(settings))
	for _, s := range settings {
		var buf [6]byte
		binary.BigEndian.PutUint16(buf[0:2], uint16(s.ID))
		binary.BigEndian.PutUint32(buf[2:6], s.Value)
		payload = append(payload, buf[:]...)
	}
	return appendFrame(dst, FrameHeader{Type: FrameSettings}, payload)
}

// EncodeSettingsACK serializes the empty SETTINGS frame with ACK set.
func EncodeSettingsACK(dst []byte) []byte {
	return appendFrame(dst, FrameHeader{Type: FrameSettings, Flags: FlagAck}, nil)
}

// EncodePushPromise serializes a PUSH_PROMISE frame.
func EncodePushPromise(dst []byte, streamID, promisedStreamID uint32, blockFragment []byte, endHeaders bool) []byte {
	var flags byte
	if endHeaders {
		flags |= FlagEndHeaders
	}
	payload := make([]byte, 4, 4+len(blockFragment))
	binary.BigEndian.PutUint32(payload, promisedStreamID&^0x80000000)
	payload = append(payload, blockFragment...)
	return appendFrame(dst, FrameHeader{Type: FramePushPromise, Flags: flags, StreamID: streamID}, payload)
}

// EncodePing serializes a PING frame; ack selects the ACK flag.
func EncodePing(dst []byte, data [8]byte, ack bool) []byte {
	var flags byte
	if ack {
		flags |= FlagAck
	}
	return appendFrame(dst, FrameHeader{Type: FramePing, Flags: flags}, data[:])
}

// EncodeGoAway serializes a GOAWAY frame.
func EncodeGoAway(dst []byte, lastStreamID uint32, code ErrorCode, debugData []byte) []byte {
	payload := make([]byte, 8, 8+len(debugData))
	binary.BigEndian.PutUint32(payload[0:4], lastStreamID&^0x80000000)
	binary.BigEndian.PutUint32(payload[4:8], uint32(code))
	payload = append(payload, debugData...)
	return appendFrame(dst, FrameHeader{Type: FrameGoAway}, payload)
}

// EncodeWindowUpdate serializes a WINDOW_UPDATE frame.
func EncodeWindowUpdate(dst []byte, streamID, increment uint32) []byte {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], increment&^0x80000000)
	return appendFrame(dst, FrameHeader{Type: FrameWindowUpdate, StreamID: streamID}, payload[:])
}

// EncodeContinuation serializes a CONTINUATION frame.
func EncodeContinuation(dst []byte, streamID uint32, blockFragment []byte, endHeaders bool) []byte {
	var flags byte
	if endHeaders {
		flags |= FlagEndHeaders
	}
	return appendFrame(dst, FrameHeader{Type: FrameContinuation, Flags: flags, StreamID: streamID}, blockFragment)
}

// SegmentData splits data into one or more DATA frames no larger than
// maxFrameSize, setting EndStream only on the final segment when
// endStream is requested. Pure function: no window or state
// awareness, so callers own accounting for both before calling it.
func SegmentData(dst []byte, streamID uint32, data []byte, maxFrameSize uint32, endStream bool) []byte {
	if maxFrameSize == 0 {
		maxFrameSize = minMaxFrameSize
	}
	if len(data) == 0 {
		return EncodeData(dst, streamID, nil, endStream)
	}
	for len(data) > 0 {
		n := uint32(len(data))
		if n > maxFrameSize {
			n = maxFrameSize
		}
		chunk := data[:n]
		data = data[n:]
		last := len(data) == 0
		dst = EncodeData(dst, streamID, chunk, last && endStream)
	}
	return dst
}

// SegmentPushPromise splits an HPACK block into one PUSH_PROMISE frame
// followed by zero or more CONTINUATION frames on assocID, each no
// larger than maxFrameSize, with EndHeaders set only on the last
// frame of the sequence. The first frame's own budget is 4 octets
// smaller than maxFrameSize to make room for the promised stream id.
func SegmentPushPromise(dst []byte, assocID, promisedID uint32, block []byte, maxFrameSize uint32) []byte {
	if maxFrameSize == 0 {
		maxFrameSize = minMaxFrameSize
	}
	firstBudget := maxFrameSize - 4
	n := uint32(len(block))
	if n > firstBudget {
		n = firstBudget
	}
	first := block[:n]
	rest := block[n:]
	dst = EncodePushPromise(dst, assocID, promisedID, first, len(rest) == 0)
	for len(rest) > 0 {
		n = uint32(len(rest))
		if n > maxFrameSize {
			n = maxFrameSize
		}
		chunk := rest[:n]
		rest = rest[n:]
		dst = EncodeContinuation(dst, assocID, chunk, len(rest) == 0)
	}
	return dst
}

// SegmentHeaders splits an HPACK block into one HEADERS frame followed
// by zero or more CONTINUATION frames, each no larger than
// maxFrameSize, with EndHeaders set only on the last frame of the
// sequence.
func SegmentHeaders(dst []byte, streamID uint32, block []byte, maxFrameSize uint32, endStream bool) []byte {
	if maxFrameSize == 0 {
		maxFrameSize = minMaxFrameSize
	}
	n := uint32(len(block))
	if n > maxFrameSize {
		n = maxFrameSize
	}
	first := block[:n]
	rest := block[n:]
	dst = EncodeHeaders(dst, streamID, first, endStream, len(rest) == 0)
	for len(rest) > 0 {
		n = uint32(len(rest))
		if n > maxFrameSize {
			n = maxFrameSize
		}
		chunk := rest[:n]
		rest = rest[n:]
		dst = EncodeContinuation(dst, streamID, chunk, len(rest) == 0)
	}
	return dst
}
