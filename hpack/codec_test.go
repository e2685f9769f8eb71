package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestC21Indexed is RFC 7541 C.2.1: encoding {":method": "GET"} with a
// fresh encoder produces the single byte 0x82, and the dynamic table
// is left unchanged (it's a pure static-table hit).
func TestC21Indexed(t *testing.T) {
	enc := NewEncoder(4096)
	out := enc.Encode(nil, []HeaderField{{Name: ":method", Value: "GET"}})
	assert.Equal(t, []byte{0x82}, out)
	used, _ := enc.TableSize()
	assert.Zero(t, used)

	dec := NewDecoder(4096, 0)
	var got []HeaderField
	require.NoError(t, dec.Decode(out, func(f HeaderField) { got = append(got, f) }))
	assert.Equal(t, []HeaderField{{Name: ":method", Value: "GET"}}, got)
	usedD, _ := dec.TableSize()
	assert.Zero(t, usedD)
}

// TestC24LiteralNoIndexingCapacityZero is RFC 7541 C.2.4: with dynamic
// table capacity 0, {":path": "/sample/path"} always encodes as a
// literal without indexing and the table stays empty.
func TestC24LiteralNoIndexingCapacityZero(t *testing.T) {
	enc := NewEncoder(0)
	out := enc.Encode(nil, []HeaderField{{Name: ":path", Value: "/sample/path"}})
	want := []byte{
		0x04, 0x0c, 0x2f, 0x73, 0x61, 0x6d, 0x70, 0x6c,
		0x65, 0x2f, 0x70, 0x61, 0x74, 0x68,
	}
	assert.Equal(t, want, out)

	dec := NewDecoder(0, 0)
	var got []HeaderField
	require.NoError(t, dec.Decode(out, func(f HeaderField) { got = append(got, f) }))
	assert.Equal(t, []HeaderField{{Name: ":path", Value: "/sample/path"}}, got)
}

// TestC3Sequence is RFC 7541 C.3: two successive decodes (without
// Huffman) of the canonical request sequence, checking the dynamic
// table's `used` size after each.
func TestC3Sequence(t *testing.T) {
	dec := NewDecoder(4096, 0)

	first := []byte{
		0x82, 0x86, 0x84, 0x41, 0x0f, 0x77, 0x77, 0x77,
		0x2e, 0x65, 0x78, 0x61, 0x6d, 0x70, 0x6c, 0x65,
		0x2e, 0x63, 0x6f, 0x6d,
	}
	var got []HeaderField
	require.NoError(t, dec.Decode(first, func(f HeaderField) { got = append(got, f) }))
	assert.Equal(t, []HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "http"},
		{Name: ":path", Value: "/"},
		{Name: ":authority", Value: "www.example.com"},
	}, got)
	used, _ := dec.TableSize()
	assert.EqualValues(t, 57, used)

	second := []byte{
		0x82, 0x86, 0x84, 0xbe, 0x58, 0x08, 0x6e, 0x6f,
		0x2d, 0x63, 0x61, 0x63, 0x68, 0x65,
	}
	got = nil
	require.NoError(t, dec.Decode(second, func(f HeaderField) { got = append(got, f) }))
	assert.Equal(t, []HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "http"},
		{Name: ":path", Value: "/"},
		{Name: ":authority", Value: "www.example.com"},
		{Name: "cache-control", Value: "no-cache"},
	}, got)
	used, _ = dec.TableSize()
	assert.EqualValues(t, 110, used)
}

// TestStatefulRoundTrip exercises the "Testable Properties" universal
// HPACK invariant: a freshly paired encoder/decoder reproduce an
// arbitrary sequence of header lists, and their dynamic tables end up
// with matching `used`.
func TestStatefulRoundTrip(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(4096, 0)

	lists := [][]HeaderField{
		{{Name: ":method", Value: "GET"}, {Name: ":path", Value: "/"}},
		{{Name: "x-custom", Value: "one"}, {Name: "x-custom", Value: "two"}},
		{{Name: ":method", Value: "GET"}, {Name: "x-custom", Value: "one"}},
		{{Name: "authorization", Value: "secret", Sensitive: true}},
	}
	for _, list := range lists {
		block := enc.Encode(nil, list)
		var got []HeaderField
		require.NoError(t, dec.Decode(block, func(f HeaderField) { got = append(got, f) }))
		assert.Equal(t, list, got)

		eUsed, eCap := enc.TableSize()
		dUsed, dCap := dec.TableSize()
		assert.Equal(t, eUsed, dUsed)
		assert.Equal(t, eCap, dCap)
	}
}

// TestSensitiveNeverIndexed checks that a Sensitive field is encoded
// as Literal Never Indexed and never ends up in the dynamic table.
func TestSensitiveNeverIndexed(t *testing.T) {
	enc := NewEncoder(4096)
	out := enc.Encode(nil, []HeaderField{{Name: "authorization", Value: "super-secret", Sensitive: true}})
	assert.Equal(t, byte(0x10), out[0]&0xf0)
	used, _ := enc.TableSize()
	assert.Zero(t, used)
}

func TestDynamicTableEvictionInvariant(t *testing.T) {
	dt := newDynamicTable(100)
	for i := 0; i < 50; i++ {
		dt.add(HeaderField{Name: "k", Value: "this-is-a-reasonably-long-value"})
		assert.LessOrEqual(t, dt.Used(), dt.Capacity())
	}
	dt.setCapacity(40)
	assert.LessOrEqual(t, dt.Used(), dt.Capacity())

	// newest-first order check
	dt2 := newDynamicTable(4096)
	dt2.add(HeaderField{Name: "a", Value: "1"})
	dt2.add(HeaderField{Name: "b", Value: "2"})
	f, ok := dt2.get(1)
	require.True(t, ok)
	assert.Equal(t, "b", f.Name)
}

func TestDynamicTableEntryLargerThanCapacityClears(t *testing.T) {
	dt := newDynamicTable(50)
	dt.add(HeaderField{Name: "k", Value: "v"})
	require.Equal(t, 1, dt.Len())
	dt.add(HeaderField{Name: "huge", Value: string(make([]byte, 100))})
	assert.Zero(t, dt.Len())
	assert.Zero(t, dt.Used())
}

func TestIndexZeroIsError(t *testing.T) {
	dec := NewDecoder(4096, 0)
	err := dec.Decode([]byte{0x80}, func(HeaderField) {})
	assert.ErrorIs(t, err, ErrCompression)
}

func TestSizeUpdateMustPrecedeHeaderField(t *testing.T) {
	dec := NewDecoder(4096, 0)
	// Indexed field (0x82) followed by a size update (0x20 prefix) is illegal.
	err := dec.Decode([]byte{0x82, 0x20}, func(HeaderField) {})
	assert.ErrorIs(t, err, ErrCompression)
}
