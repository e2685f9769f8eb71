package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuffmanRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"www.example.com",
		"no-cache",
		"custom-key",
		"custom-value",
		"Mon, 21 Oct 2013 20:13:21 GMT",
		"https://www.example.com",
		"gzip",
		"a",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	}
	for _, s := range cases {
		dst := huffmanEncode(nil, s)
		got, err := huffmanDecode(nil, dst, DefaultMaxDecodedStringLen)
		require.NoError(t, err, "input=%q", s)
		assert.Equal(t, s, string(got))
	}
}

func TestHuffmanShortestCorrect(t *testing.T) {
	// "www.example.com" is the canonical RFC 7541 C.4.1 example: it
	// Huffman-encodes shorter than its literal 15-byte form.
	s := "www.example.com"
	dst := huffmanEncode(nil, s)
	assert.Less(t, len(dst), len(s))
}

func TestHuffmanRFCVector(t *testing.T) {
	// RFC 7541 C.4.1: "www.example.com" -> the literal hex vector.
	want := []byte{0xf1, 0xe3, 0xc2, 0xe5, 0xf2, 0x3a, 0x6b, 0xa0, 0xab, 0x90, 0xf4, 0xff}
	got := huffmanEncode(nil, "www.example.com")
	assert.Equal(t, want, got)

	decoded, err := huffmanDecode(nil, want, DefaultMaxDecodedStringLen)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", string(decoded))
}

func TestHuffmanInvalidPadding(t *testing.T) {
	// One byte of all-zero bits can never be a valid EOS-prefix pad:
	// the shortest code is 5 bits ('0','1','2' etc map to 5-bit codes
	// with low value), but all-ones is required for valid padding.
	bad := []byte{0x00}
	_, err := huffmanDecode(nil, bad, DefaultMaxDecodedStringLen)
	assert.Error(t, err)
}

func TestHuffmanBufferCap(t *testing.T) {
	s := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	dst := huffmanEncode(nil, s)
	_, err := huffmanDecode(nil, dst, 4)
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}
