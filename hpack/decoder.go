package hpack

import "fmt"

// DefaultMaxDecodedStringLen is the default defense-in-depth cap on a
// single decoded string's length.
const DefaultMaxDecodedStringLen = 64 * 1024

// Decoder is the per-direction decoding context. It owns a dynamic
// table that persists across calls to Decode for the life of the
// connection.
type Decoder struct {
	dyn              *dynamicTable
	maxAllowedDynCap uint32 // peer-signaled ceiling (SETTINGS_HEADER_TABLE_SIZE we sent)
	maxStringLen     int
}

// NewDecoder creates a decoder whose dynamic table starts at capacity
// and whose decoded strings are capped at maxStringLen bytes (0 means
// DefaultMaxDecodedStringLen).
func NewDecoder(capacity uint32, maxStringLen int) *Decoder {
	if maxStringLen <= 0 {
		maxStringLen = DefaultMaxDecodedStringLen
	}
	return &Decoder{
		dyn:              newDynamicTable(capacity),
		maxAllowedDynCap: capacity,
		maxStringLen:     maxStringLen,
	}
}

// SetMaxAllowedCapacity updates the ceiling a peer-sent Dynamic Table
// Size Update may not exceed (driven by our own outgoing
// SETTINGS_HEADER_TABLE_SIZE).
func (d *Decoder) SetMaxAllowedCapacity(max uint32) {
	d.maxAllowedDynCap = max
	if d.dyn.Capacity() > max {
		d.dyn.setCapacity(max)
	}
}

// TableSize reports the dynamic table's current used bytes and
// capacity, for tests asserting the stateful round-trip property.
func (d *Decoder) TableSize() (used, capacity uint32) {
	return d.dyn.Used(), d.dyn.Capacity()
}

// Decode parses a complete header-block fragment sequence (already
// reassembled by the caller across HEADERS/CONTINUATION frames) and
// invokes emit for each decoded field in wire order.
func (d *Decoder) Decode(block []byte, emit func(HeaderField)) error {
	sawHeaderField := false
	for len(block) > 0 {
		b := block[0]
		switch {
		case b&0x80 != 0: // Indexed Header Field, RFC 7541 §6.1
			idx, n, err := decodeInteger(block, 7)
			if err != nil {
				return fmt.Errorf("hpack: decode indexed header field: %w", err)
			}
			block = block[n:]
			if idx == 0 {
				return ErrCompression
			}
			f, ok := d.lookup(int(idx))
			if !ok {
				return ErrIndexOutOfBounds
			}
			emit(f)
			sawHeaderField = true

		case b&0xc0 == 0x40: // Literal with Incremental Indexing, §6.2.1
			f, n, err := d.decodeLiteral(block, 6)
			if err != nil {
				return err
			}
			block = block[n:]
			d.dyn.add(f)
			emit(f)
			sawHeaderField = true

		case b&0xf0 == 0x00: // Literal without Indexing, §6.2.2
			f, n, err := d.decodeLiteral(block, 4)
			if err != nil {
				return err
			}
			block = block[n:]
			emit(f)
			sawHeaderField = true

		case b&0xf0 == 0x10: // Literal Never Indexed, §6.2.3
			f, n, err := d.decodeLiteral(block, 4)
			if err != nil {
				return err
			}
			f.Sensitive = true
			block = block[n:]
			emit(f)
			sawHeaderField = true

		case b&0xe0 == 0x20: // Dynamic Table Size Update, §6.3
			if sawHeaderField {
				return ErrCompression
			}
			size, n, err := decodeInteger(block, 5)
			if err != nil {
				return fmt.Errorf("hpack: decode dynamic table size update: %w", err)
			}
			if size > uint64(d.maxAllowedDynCap) {
				return ErrCompression
			}
			block = block[n:]
			d.dyn.setCapacity(uint32(size))

		default:
			return ErrCompression
		}
	}
	return nil
}

// decodeLiteral decodes the shared body of the three literal forms:
// an index (name reference, 0 = name follows as a string) under
// prefixBits, then a value string.
func (d *Decoder) decodeLiteral(block []byte, prefixBits uint8) (HeaderField, int, error) {
	idx, n, err := decodeInteger(block, prefixBits)
	if err != nil {
		return HeaderField{}, 0, fmt.Errorf("hpack: decode literal header field: %w", err)
	}
	total := n
	var name string
	if idx == 0 {
		s, sn, err := decodeString(block[total:], d.maxStringLen)
		if err != nil {
			return HeaderField{}, 0, fmt.Errorf("hpack: decode literal header field name: %w", err)
		}
		name = s
		total += sn
	} else {
		f, ok := d.lookup(int(idx))
		if !ok {
			return HeaderField{}, 0, ErrIndexOutOfBounds
		}
		name = f.Name
	}
	value, vn, err := decodeString(block[total:], d.maxStringLen)
	if err != nil {
		return HeaderField{}, 0, fmt.Errorf("hpack: decode literal header field value: %w", err)
	}
	total += vn
	return HeaderField{Name: name, Value: value}, total, nil
}

// lookup resolves a 1-based combined static/dynamic index.
func (d *Decoder) lookup(index int) (HeaderField, bool) {
	if index <= len(staticTable) {
		return staticGet(index)
	}
	return d.dyn.get(index - len(staticTable))
}
