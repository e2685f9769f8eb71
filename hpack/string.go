package hpack

import "fmt"

// decodeString decodes an RFC 7541 §5.2 string literal from src,
// honoring the Huffman flag in the top bit of the length prefix. maxLen
// bounds decompressed output to defend against decompression bombs.
func decodeString(src []byte, maxLen int) (string, int, error) {
	if len(src) == 0 {
		return "", 0, ErrBufferTooSmall
	}
	huff := src[0]&0x80 != 0
	length, n, err := decodeInteger(src, 7)
	if err != nil {
		return "", n, fmt.Errorf("hpack: decode string: %w", err)
	}
	total := n + int(length)
	if total > len(src) {
		return "", n, ErrBufferTooSmall
	}
	body := src[n:total]
	if !huff {
		if len(body) > maxLen {
			return "", total, ErrBufferTooSmall
		}
		return string(body), total, nil
	}
	decoded, err := huffmanDecode(make([]byte, 0, len(body)*2), body, maxLen)
	if err != nil {
		return "", total, fmt.Errorf("hpack: decode string: %w", err)
	}
	return string(decoded), total, nil
}

// encodeString appends the RFC 7541 §5.2 encoding of s to dst. It
// tries the Huffman form and uses it only when strictly shorter than
// the literal form.
func encodeString(dst []byte, s string) []byte {
	huffLen := huffmanEncodedLen(s)
	if huffLen < len(s) {
		dst = encodeInteger(dst, 7, 0x80, uint64(huffLen))
		return huffmanEncode(dst, s)
	}
	dst = encodeInteger(dst, 7, 0x00, uint64(len(s)))
	return append(dst, s...)
}
