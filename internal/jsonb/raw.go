package jsonb

import "argusdb/internal/common"

// GetByNameRaw returns the still-encoded bytes of the named field of an
// object-kind blob without decoding any sibling field (§4.1). ok is false
// if blob is not an object or has no such field.
func GetByNameRaw(blob []byte, name string) (raw []byte, ok bool) {
	if len(blob) < 1 || Kind(blob[0]) != KindObject {
		return nil, false
	}
	rest := blob[1:]
	n, rest, err := readU32(rest)
	if err != nil {
		return nil, false
	}
	for i := uint32(0); i < n; i++ {
		key, next, err := readLenPrefixed(rest)
		if err != nil {
			return nil, false
		}
		val, next2, err := readLenPrefixed(next)
		if err != nil {
			return nil, false
		}
		if string(key) == name {
			return val, true
		}
		rest = next2
	}
	return nil, false
}

// GetByIndexRaw returns the still-encoded bytes of element i of an
// array-kind blob without decoding any other element.
func GetByIndexRaw(blob []byte, index int) (raw []byte, ok bool) {
	if index < 0 || len(blob) < 1 || Kind(blob[0]) != KindArray {
		return nil, false
	}
	rest := blob[1:]
	n, rest, err := readU32(rest)
	if err != nil {
		return nil, false
	}
	if uint32(index) >= n {
		return nil, false
	}
	for i := uint32(0); i < n; i++ {
		val, next, err := readLenPrefixed(rest)
		if err != nil {
			return nil, false
		}
		if i == uint32(index) {
			return val, true
		}
		rest = next
	}
	return nil, false
}

// IsNullRaw reports whether blob encodes the null value, without decoding
// anything else. Used by lazy documents to answer "tombstone?" by
// inspecting only the value position of the top-level (id, V) pair.
func IsNullRaw(blob []byte) bool {
	return len(blob) >= 1 && Kind(blob[0]) == KindNull
}

// DecodeRaw fully decodes a still-tagged slice returned by one of the Raw
// accessors above. It is the point where lazy access gives way to eager
// decoding for the one field/element actually needed.
func DecodeRaw(raw []byte) (Value, error) {
	if raw == nil {
		return Value{}, common.New(common.ErrDecode, "nil raw value")
	}
	return Decode(raw)
}

// EncodePair encodes the top-level (id, V) record pair stored in a
// segment's .data file and a memtable flush buffer: a 2-element array
// whose first element is the id string and second is the document value
// (or the null tombstone). This matches §6's "binary-JSON-encoded pair
// (id:string, value:V)".
func EncodePair(id string, v Value) []byte {
	return Encode(Array([]Value{String(id), v}))
}

// DecodePairID extracts only the id string from an encoded (id, V) pair,
// without decoding the value — the lazy-document "tombstone?" check reads
// only the tag of the pair's second element via PairValueRaw/IsNullRaw.
func DecodePairID(blob []byte) (string, error) {
	idRaw, ok := GetByIndexRaw(blob, 0)
	if !ok {
		return "", common.New(common.ErrDecode, "malformed record pair: missing id")
	}
	idVal, err := Decode(idRaw)
	if err != nil {
		return "", err
	}
	if idVal.Kind() != KindString {
		return "", common.New(common.ErrDecode, "malformed record pair: id is not a string")
	}
	return idVal.Str(), nil
}

// PairValueRaw extracts the still-encoded value half of an (id, V) pair.
func PairValueRaw(blob []byte) ([]byte, error) {
	raw, ok := GetByIndexRaw(blob, 1)
	if !ok {
		return nil, common.New(common.ErrDecode, "malformed record pair: missing value")
	}
	return raw, nil
}
