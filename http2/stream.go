package http2

// StreamState is one node of the RFC 7540 §5.1 state machine.
// Generalized from gorox's http2State* constants
// (web_proto_http2.go), which gorox only partially modeled (no
// reserved states, since gorox never implemented server push).
type StreamState uint8

const (
	StateIdle StreamState = iota
	StateReservedLocal
	StateReservedRemote
	StateOpen
	StateHalfClosedLocal
	StateHalfClosedRemote
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReservedLocal:
		return "reserved(local)"
	case StateReservedRemote:
		return "reserved(remote)"
	case StateOpen:
		return "open"
	case StateHalfClosedLocal:
		return "half-closed(local)"
	case StateHalfClosedRemote:
		return "half-closed(remote)"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is one HTTP/2 stream's local view: state and flow-control
// windows are tracked here; header blocks are assembled in the
// Connection's single continuation slot. The Connection owns the map
// of these keyed by ID.
type Stream struct {
	ID    uint32
	State StreamState

	// sendWindow/recvWindow are signed per RFC 7540 §6.9.1: a SETTINGS
	// change to INITIAL_WINDOW_SIZE can drive them negative.
	sendWindow int64
	recvWindow int64

	// headerBlock, assemblingFrom and endStreamAfter are not read or
	// written by the engine; HEADERS/CONTINUATION fragments accumulate
	// in Connection.cont instead.
	headerBlock    []byte
	assemblingFrom FrameType // FrameHeaders or FramePushPromise
	endStreamAfter bool

	rstSent bool
	rstRecv bool
}

func newStream(id uint32, initialSendWindow, initialRecvWindow int64, state StreamState) *Stream {
	return &Stream{
		ID:         id,
		State:      state,
		sendWindow: initialSendWindow,
		recvWindow: initialRecvWindow,
	}
}

// transition validates and applies a local state change. Illegal
// transitions return a StreamError with ErrCodeStreamClosed per RFC
// 7540 §5.1's "frames after a stream is closed" rule.
func (s *Stream) transition(event streamEvent) error {
	next, ok := streamTransitions[s.State][event]
	if !ok {
		return &StreamError{StreamID: s.ID, Code: ErrCodeStreamClosed, Reason: "invalid stream transition from " + s.State.String()}
	}
	s.State = next
	return nil
}

type streamEvent uint8

const (
	eventSendHeaders streamEvent = iota
	eventRecvHeaders
	eventSendPushPromise
	eventRecvPushPromise
	eventSendEndStream
	eventRecvEndStream
	eventSendRST
	eventRecvRST
)

// streamTransitions is the state machine table from RFC 7540 §5.1,
// keyed [currentState][event] -> nextState. HEADERS travelling in a
// direction that is still open (a response or trailers) leaves the
// state unchanged. Entries not present are rejected by
// transition.
var streamTransitions = map[StreamState]map[streamEvent]StreamState{
	StateIdle: {
		eventSendHeaders:     StateOpen,
		eventRecvHeaders:     StateOpen,
		eventSendPushPromise: StateReservedLocal,
		eventRecvPushPromise: StateReservedRemote,
	},
	StateReservedLocal: {
		eventSendHeaders: StateHalfClosedRemote,
		eventSendRST:     StateClosed,
		eventRecvRST:     StateClosed,
	},
	StateReservedRemote: {
		eventRecvHeaders: StateHalfClosedLocal,
		eventSendRST:     StateClosed,
		eventRecvRST:     StateClosed,
	},
	StateOpen: {
		eventSendHeaders:   StateOpen,
		eventRecvHeaders:   StateOpen,
		eventSendEndStream: StateHalfClosedLocal,
		eventRecvEndStream: StateHalfClosedRemote,
		eventSendRST:       StateClosed,
		eventRecvRST:       StateClosed,
	},
	StateHalfClosedLocal: {
		eventRecvHeaders:   StateHalfClosedLocal,
		eventRecvEndStream: StateClosed,
		eventSendRST:       StateClosed,
		eventRecvRST:       StateClosed,
	},
	StateHalfClosedRemote: {
		eventSendHeaders:   StateHalfClosedRemote,
		eventSendEndStream: StateClosed,
		eventSendRST:       StateClosed,
		eventRecvRST:       StateClosed,
	},
}
