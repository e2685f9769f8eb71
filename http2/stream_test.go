package http2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamStateMachineBasicRequest(t *testing.T) {
	s := newStream(1, 65535, 65535, StateIdle)
	require.NoError(t, s.transition(eventRecvHeaders))
	assert.Equal(t, StateOpen, s.State)
	require.NoError(t, s.transition(eventRecvEndStream))
	assert.Equal(t, StateHalfClosedRemote, s.State)
	require.NoError(t, s.transition(eventSendEndStream))
	assert.Equal(t, StateClosed, s.State)
}

func TestStreamStateMachineRejectsFrameAfterClosed(t *testing.T) {
	s := newStream(1, 65535, 65535, StateClosed)
	err := s.transition(eventRecvHeaders)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeStreamClosed, se.Code)
}

func TestStreamStateMachineReservedPush(t *testing.T) {
	s := newStream(2, 65535, 65535, StateIdle)
	require.NoError(t, s.transition(eventRecvPushPromise))
	assert.Equal(t, StateReservedRemote, s.State)
	require.NoError(t, s.transition(eventRecvHeaders))
	assert.Equal(t, StateHalfClosedLocal, s.State)
}
