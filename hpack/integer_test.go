package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 10, 15, 31, 127, 128, 129, 255, 1337, 65535, 1 << 20, 1<<32 - 1}
	for _, n := range []uint8{4, 5, 6, 7} {
		for _, v := range values {
			dst := encodeInteger(nil, n, 0, v)
			got, consumed, err := decodeInteger(dst, n)
			require.NoError(t, err, "n=%d v=%d", n, v)
			assert.Equal(t, v, got)
			assert.Equal(t, len(dst), consumed)
		}
	}
}

func TestIntegerTruncatedInput(t *testing.T) {
	dst := encodeInteger(nil, 5, 0, 1337)
	_, _, err := decodeInteger(dst[:len(dst)-1], 5)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestIntegerOverflow(t *testing.T) {
	// a pathological continuation run that never terminates within 63 bits
	malicious := append([]byte{0x1f}, make([]byte, 12)...)
	for i := 1; i < len(malicious); i++ {
		malicious[i] = 0x80
	}
	malicious[len(malicious)-1] = 0x01
	_, _, err := decodeInteger(malicious, 5)
	assert.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestIntegerC1Prefix(t *testing.T) {
	// RFC 7541 C.1.1: 10 encoded with a 5-bit prefix is a single byte.
	dst := encodeInteger(nil, 5, 0, 10)
	assert.Equal(t, []byte{10}, dst)
	// RFC 7541 C.1.2: 1337 encoded with a 5-bit prefix is 3 bytes.
	dst = encodeInteger(nil, 5, 0, 1337)
	assert.Equal(t, []byte{0x1f, 0x9a, 0x0a}, dst)
}
