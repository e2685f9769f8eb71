package http2

import "fmt"

// ErrorCode is an HTTP/2 error code (RFC 7540 §7), carried on
// RST_STREAM and GOAWAY frames.
type ErrorCode uint32

const (
	ErrCodeNo                 ErrorCode = 0x0
	ErrCodeProtocol           ErrorCode = 0x1
	ErrCodeInternal           ErrorCode = 0x2
	ErrCodeFlowControl        ErrorCode = 0x3
	ErrCodeSettingsTimeout    ErrorCode = 0x4
	ErrCodeStreamClosed       ErrorCode = 0x5
	ErrCodeFrameSize          ErrorCode = 0x6
	ErrCodeRefusedStream      ErrorCode = 0x7
	ErrCodeCancel             ErrorCode = 0x8
	ErrCodeCompression        ErrorCode = 0x9
	ErrCodeConnect            ErrorCode = 0xa
	ErrCodeEnhanceYourCalm    ErrorCode = 0xb
	ErrCodeInadequateSecurity ErrorCode = 0xc
	ErrCodeHTTP11Required     ErrorCode = 0xd
)

var errorCodeTexts = map[ErrorCode]string{
	ErrCodeNo:                 "NO_ERROR",
	ErrCodeProtocol:           "PROTOCOL_ERROR",
	ErrCodeInternal:           "INTERNAL_ERROR",
	ErrCodeFlowControl:        "FLOW_CONTROL_ERROR",
	ErrCodeSettingsTimeout:    "SETTINGS_TIMEOUT",
	ErrCodeStreamClosed:       "STREAM_CLOSED",
	ErrCodeFrameSize:          "FRAME_SIZE_ERROR",
	ErrCodeRefusedStream:      "REFUSED_STREAM",
	ErrCodeCancel:             "CANCEL",
	ErrCodeCompression:        "COMPRESSION_ERROR",
	ErrCodeConnect:            "CONNECT_ERROR",
	ErrCodeEnhanceYourCalm:    "ENHANCE_YOUR_CALM",
	ErrCodeInadequateSecurity: "INADEQUATE_SECURITY",
	ErrCodeHTTP11Required:     "HTTP_1_1_REQUIRED",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeTexts[c]; ok {
		return s
	}
	return fmt.Sprintf("ERROR_CODE(%d)", uint32(c))
}

// ConnError is a connection-level error: the engine must emit GOAWAY
// with Code and tear the connection down.
type ConnError struct {
	Code   ErrorCode
	Reason string
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("http2: connection error: %s: %s", e.Code, e.Reason)
}

// StreamError is a stream-level error: the engine emits RST_STREAM for
// StreamID with Code and the rest of the connection continues.
type StreamError struct {
	StreamID uint32
	Code     ErrorCode
	Reason   string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("http2: stream %d error: %s: %s", e.StreamID, e.Code, e.Reason)
}
