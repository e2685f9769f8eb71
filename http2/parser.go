package http2

import "encoding/binary"

// parseFrame attempts to decode exactly one frame from the head of
// buf. It returns (frame, consumed, nil) on success, (nil, 0, nil) if
// buf does not yet hold a complete frame (the caller must feed more
// bytes and retry), or (nil, 0, err) if the frame is malformed.
//
// This is the resumable core behind Connection.FeedBytes: unlike the
// gorox's http2InFrame (web_proto_http2.go), which decodes
// against a single pre-filled buffer tied to a live net.Conn, this
// function owns no I/O and can be handed a short read repeatedly.
func parseFrame(buf []byte, maxFrameSize uint32) (Frame, int, error) {
	if len(buf) < frameHeaderLen {
		return nil, 0, nil
	}
	h := decodeFrameHeader(buf)
	if h.Length > maxFrameSize {
		return nil, 0, &ConnError{Code: ErrCodeFrameSize, Reason: "frame length exceeds SETTINGS_MAX_FRAME_SIZE"}
	}
	total := frameHeaderLen + int(h.Length)
	if len(buf) < total {
		return nil, 0, nil
	}
	payload := buf[frameHeaderLen:total]

	f, err := decodePayload(h, payload)
	if err != nil {
		return nil, 0, err
	}
	return f, total, nil
}

func decodePayload(h FrameHeader, payload []byte) (Frame, error) {
	switch h.Type {
	case FrameData:
		return decodeDataPayload(h, payload)
	case FrameHeaders:
		return decodeHeadersPayload(h, payload)
	case FramePriority:
		return decodePriorityPayload(h, payload)
	case FrameRSTStream:
		return decodeRSTStreamPayload(h, payload)
	case FrameSettings:
		return decodeSettingsPayload(h, payload)
	case FramePushPromise:
		return decodePushPromisePayload(h, payload)
	case FramePing:
		return decodePingPayload(h, payload)
	case FrameGoAway:
		return decodeGoAwayPayload(h, payload)
	case FrameWindowUpdate:
		return decodeWindowUpdatePayload(h, payload)
	case FrameContinuation:
		return decodeContinuationPayload(h, payload)
	default:
		cp := append([]byte(nil), payload...)
		return &UnknownFrame{FrameHeader: h, Payload: cp}, nil
	}
}

// splitPadded strips the one-octet pad-length prefix and trailing pad
// octets present when FlagPadded is set, per RFC 7540 §6.1/§6.2.
func splitPadded(h FrameHeader, payload []byte) (data []byte, err error) {
	if h.Flags&FlagPadded == 0 {
		return payload, nil
	}
	if len(payload) < 1 {
		return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "padded frame too short for pad length"}
	}
	padLen := int(payload[0])
	rest := payload[1:]
	if padLen > len(rest) {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "pad length exceeds frame payload"}
	}
	return rest[:len(rest)-padLen], nil
}

func decodeDataPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID == 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "DATA on stream 0"}
	}
	data, err := splitPadded(h, payload)
	if err != nil {
		return nil, err
	}
	return &DataFrame{
		FrameHeader: h,
		Data:        append([]byte(nil), data...),
		EndStream:   h.Flags&FlagEndStream != 0,
	}, nil
}

func decodeHeadersPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID == 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "HEADERS on stream 0"}
	}
	rest, err := splitPadded(h, payload)
	if err != nil {
		return nil, err
	}
	var prio *PriorityParam
	if h.Flags&FlagPriority != 0 {
		if len(rest) < 5 {
			return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "HEADERS priority fields truncated"}
		}
		raw := binary.BigEndian.Uint32(rest[0:4])
		prio = &PriorityParam{
			Exclusive: raw&0x80000000 != 0,
			StreamDep: raw &^ 0x80000000,
			Weight:    rest[4],
		}
		rest = rest[5:]
	}
	return &HeadersFrame{
		FrameHeader:   h,
		Priority:      prio,
		BlockFragment: append([]byte(nil), rest...),
		EndStream:     h.Flags&FlagEndStream != 0,
		EndHeaders:    h.Flags&FlagEndHeaders != 0,
	}, nil
}

func decodePriorityPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID == 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "PRIORITY on stream 0"}
	}
	if len(payload) != 5 {
		return nil, &StreamError{StreamID: h.StreamID, Code: ErrCodeFrameSize, Reason: "PRIORITY payload must be 5 octets"}
	}
	raw := binary.BigEndian.Uint32(payload[0:4])
	return &PriorityFrame{
		FrameHeader: h,
		Priority: PriorityParam{
			Exclusive: raw&0x80000000 != 0,
			StreamDep: raw &^ 0x80000000,
			Weight:    payload[4],
		},
	}, nil
}

func decodeRSTStreamPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID == 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "RST_STREAM on stream 0"}
	}
	if len(payload) != 4 {
		return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "RST_STREAM payload must be 4 octets"}
	}
	return &RSTStreamFrame{
		FrameHeader: h,
		ErrorCode:   ErrorCode(binary.BigEndian.Uint32(payload)),
	}, nil
}

func decodeSettingsPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID != 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "SETTINGS on non-zero stream"}
	}
	ack := h.Flags&FlagAck != 0
	if ack {
		if len(payload) != 0 {
			return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "SETTINGS ACK must be empty"}
		}
		return &SettingsFrame{FrameHeader: h, ACK: true}, nil
	}
	if len(payload)%6 != 0 {
		return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "SETTINGS payload not a multiple of 6"}
	}
	settings := make([]Setting, 0, len(payload)/6)
	for i := 0; i < len(payload); i += 6 {
		settings = append(settings, Setting{
			ID:    SettingID(binary.BigEndian.Uint16(payload[i : i+2])),
			Value: binary.BigEndian.Uint32(payload[i+2 : i+6]),
		})
	}
	return &SettingsFrame{FrameHeader: h, Settings: settings}, nil
}

func decodePushPromisePayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID == 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "PUSH_PROMISE on stream 0"}
	}
	rest, err := splitPadded(h, payload)
	if err != nil {
		return nil, err
	}
	if len(rest) < 4 {
		return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "PUSH_PROMISE truncated"}
	}
	promised := binary.BigEndian.Uint32(rest[0:4]) &^ 0x80000000
	return &PushPromiseFrame{
		FrameHeader:      h,
		PromisedStreamID: promised,
		BlockFragment:    append([]byte(nil), rest[4:]...),
		EndHeaders:       h.Flags&FlagEndHeaders != 0,
	}, nil
}

func decodePingPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID != 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "PING on non-zero stream"}
	}
	if len(payload) != 8 {
		return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "PING payload must be 8 octets"}
	}
	f := &PingFrame{FrameHeader: h, ACK: h.Flags&FlagAck != 0}
	copy(f.Data[:], payload)
	return f, nil
}

func decodeGoAwayPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID != 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "GOAWAY on non-zero stream"}
	}
	if len(payload) < 8 {
		return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "GOAWAY truncated"}
	}
	return &GoAwayFrame{
		FrameHeader:  h,
		LastStreamID: binary.BigEndian.Uint32(payload[0:4]) &^ 0x80000000,
		ErrorCode:    ErrorCode(binary.BigEndian.Uint32(payload[4:8])),
		DebugData:    append([]byte(nil), payload[8:]...),
	}, nil
}

func decodeWindowUpdatePayload(h FrameHeader, payload []byte) (Frame, error) {
	if len(payload) != 4 {
		return nil, &ConnError{Code: ErrCodeFrameSize, Reason: "WINDOW_UPDATE payload must be 4 octets"}
	}
	inc := binary.BigEndian.Uint32(payload) &^ 0x80000000
	if inc == 0 {
		if h.StreamID == 0 {
			return nil, &ConnError{Code: ErrCodeProtocol, Reason: "WINDOW_UPDATE increment of 0"}
		}
		return nil, &StreamError{StreamID: h.StreamID, Code: ErrCodeProtocol, Reason: "WINDOW_UPDATE increment of 0"}
	}
	return &WindowUpdateFrame{FrameHeader: h, Increment: inc}, nil
}

func decodeContinuationPayload(h FrameHeader, payload []byte) (Frame, error) {
	if h.StreamID == 0 {
		return nil, &ConnError{Code: ErrCodeProtocol, Reason: "CONTINUATION on stream 0"}
	}
	return &ContinuationFrame{
		FrameHeader:   h,
		BlockFragment: append([]byte(nil), payload...),
		EndHeaders:    h.Flags&FlagEndHeaders != 0,
	}, nil
}
