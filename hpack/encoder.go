package hpack

// Encoder is the per-direction encoding context, owning the dynamic
// table. It shares no state with its peer's Decoder beyond the bytes
// it emits.
type Encoder struct {
	dyn *dynamicTable
}

// NewEncoder creates an encoder whose dynamic table starts at
// capacity (the peer's SETTINGS_HEADER_TABLE_SIZE, 4096 until the peer
// advertises another value).
func NewEncoder(capacity uint32) *Encoder {
	return &Encoder{dyn: newDynamicTable(capacity)}
}

// TableSize reports the dynamic table's current used bytes and
// capacity.
func (e *Encoder) TableSize() (used, capacity uint32) {
	return e.dyn.Used(), e.dyn.Capacity()
}

// SetCapacity applies a capacity change (our own encoder decided to
// shrink/grow what it is willing to use, up to what the peer most
// recently advertised via SETTINGS_HEADER_TABLE_SIZE) and emits the Dynamic
// Table Size Update instruction that must precede any header field in
// the block carrying it. Callers that call this must prepend the
// returned bytes to the block being built.
func (e *Encoder) SetCapacity(dst []byte, capacity uint32) []byte {
	e.dyn.setCapacity(capacity)
	return encodeInteger(dst, 5, 0x20, uint64(capacity))
}

// Encode appends the encoding of each field in fields to dst in
// order: exact static/dynamic match wins as Indexed; otherwise a
// sensitive field is Literal Never Indexed; otherwise a field that fits
// the dynamic table is inserted via Literal with Incremental
// Indexing, and one that doesn't is emitted as Literal without
// Indexing.
func (e *Encoder) Encode(dst []byte, fields []HeaderField) []byte {
	for _, f := range fields {
		dst = e.encodeOne(dst, f)
	}
	return dst
}

func (e *Encoder) encodeOne(dst []byte, f HeaderField) []byte {
	sIdx, sExact := staticLookup(f.Name, f.Value)
	dIdx, dExact := e.dyn.find(f.Name, f.Value)

	if sExact {
		return encodeInteger(dst, 7, 0x80, uint64(sIdx))
	}
	if dExact {
		return encodeInteger(dst, 7, 0x80, uint64(dIdx+len(staticTable)))
	}

	nameIdx := 0 // 0 means "name follows as a literal string"
	if sIdx != 0 {
		nameIdx = sIdx
	} else if dIdx != 0 {
		nameIdx = dIdx + len(staticTable)
	}

	if f.Sensitive {
		return e.encodeLiteral(dst, 4, 0x10, nameIdx, f)
	}
	if f.size() <= e.dyn.Capacity() {
		dst = e.encodeLiteral(dst, 6, 0x40, nameIdx, f)
		e.dyn.add(f)
		return dst
	}
	return e.encodeLiteral(dst, 4, 0x00, nameIdx, f)
}

func (e *Encoder) encodeLiteral(dst []byte, prefixBits uint8, tag byte, nameIdx int, f HeaderField) []byte {
	dst = encodeInteger(dst, prefixBits, tag, uint64(nameIdx))
	if nameIdx == 0 {
		dst = encodeString(dst, f.Name)
	}
	return encodeString(dst, f.Value)
}
