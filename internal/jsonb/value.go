// Package jsonb implements ArgusDB's binary document format: a tagged,
// length-prefixed encoding of a JSON-like value that supports decoding a
// named object field or an indexed array element without first decoding
// its siblings (§4.1 of the spec).
package jsonb

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	"argusdb/internal/common"

	gojson "github.com/goccy/go-json"
)

// Kind tags the wire representation of a Value.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindUint64
	KindFloat64
	KindString
	KindArray
	KindObject
)

// Value is the tagged sum type documented in spec §3: null, bool, int64,
// uint64, float64, string, array, or an order-preserving object.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	u      uint64
	f      float64
	s      string
	arr    []Value
	fields []Field
}

// Field is one key/value pair of an object Value. Objects preserve
// insertion order, so Fields is a slice rather than a map.
type Field struct {
	Key   string
	Value Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int64(i int64) Value        { return Value{kind: KindInt64, i: i} }
func Uint64(u uint64) Value      { return Value{kind: KindUint64, u: u} }
func Float64(f float64) Value    { return Value{kind: KindFloat64, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Array(items []Value) Value  { return Value{kind: KindArray, arr: items} }
func Object(fields []Field) Value { return Value{kind: KindObject, fields: fields} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Bool() bool    { return v.b }
func (v Value) Int64() int64  { return v.i }
func (v Value) Uint64() uint64 { return v.u }
func (v Value) Float64() float64 { return v.f }
func (v Value) Str() string   { return v.s }
func (v Value) Items() []Value { return v.arr }
func (v Value) Fields() []Field { return v.fields }

// Get returns the value of the named field of an object Value, or
// (Value{}, false) if v is not an object or has no such field.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Key == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Index returns the i'th element of an array Value.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// AsFloat64 returns the numeric value of v as a float64, whatever its
// concrete numeric kind, following the spec's "numeric equality/comparison
// is exact across int64/uint64/float64" rule (§4.1, §4.8).
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindInt64:
		return float64(v.i), true
	case KindUint64:
		return float64(v.u), true
	case KindFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal implements value equality used by the query executor's Eq/Neq
// operators: numeric values compare by numeric value regardless of
// concrete kind; everything else compares structurally.
func Equal(a, b Value) bool {
	af, aNum := a.AsFloat64()
	bf, bNum := b.AsFloat64()
	if aNum && bNum {
		return af == bf
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for _, f := range a.fields {
			bv, ok := b.Get(f.Key)
			if !ok || !Equal(f.Value, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Encode serializes v into ArgusDB's tagged binary format.
func Encode(v Value) []byte {
	buf := make([]byte, 0, 64)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) []byte {
	switch v.kind {
	case KindNull:
		return append(buf, byte(KindNull))
	case KindBool:
		buf = append(buf, byte(KindBool))
		if v.b {
			return append(buf, 1)
		}
		return append(buf, 0)
	case KindInt64:
		buf = append(buf, byte(KindInt64))
		return appendU64(buf, uint64(v.i))
	case KindUint64:
		buf = append(buf, byte(KindUint64))
		return appendU64(buf, v.u)
	case KindFloat64:
		buf = append(buf, byte(KindFloat64))
		return appendU64(buf, math.Float64bits(v.f))
	case KindString:
		buf = append(buf, byte(KindString))
		return appendLenPrefixed(buf, []byte(v.s))
	case KindArray:
		buf = append(buf, byte(KindArray))
		buf = appendU32(buf, uint32(len(v.arr)))
		for _, item := range v.arr {
			encoded := appendValue(nil, item)
			buf = appendLenPrefixed(buf, encoded)
		}
		return buf
	case KindObject:
		buf = append(buf, byte(KindObject))
		buf = appendU32(buf, uint32(len(v.fields)))
		for _, f := range v.fields {
			buf = appendLenPrefixed(buf, []byte(f.Key))
			encoded := appendValue(nil, f.Value)
			buf = appendLenPrefixed(buf, encoded)
		}
		return buf
	default:
		return append(buf, byte(KindNull))
	}
}

func appendU32(buf []byte, n uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], n)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, n uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], n)
	return append(buf, tmp[:]...)
}

func appendLenPrefixed(buf []byte, data []byte) []byte {
	buf = appendU32(buf, uint32(len(data)))
	return append(buf, data...)
}

// Decode parses the whole value out of b, per the public contract
// decode(bytes) -> V.
func Decode(b []byte) (Value, error) {
	v, rest, err := decodeValue(b)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, common.New(common.ErrDecode, "trailing bytes after value")
	}
	return v, nil
}

func decodeValue(b []byte) (Value, []byte, error) {
	if len(b) < 1 {
		return Value{}, nil, common.New(common.ErrDecode, "empty buffer")
	}
	kind := Kind(b[0])
	b = b[1:]
	switch kind {
	case KindNull:
		return Null(), b, nil
	case KindBool:
		if len(b) < 1 {
			return Value{}, nil, common.New(common.ErrDecode, "truncated bool")
		}
		return Bool(b[0] != 0), b[1:], nil
	case KindInt64:
		u, rest, err := readU64(b)
		if err != nil {
			return Value{}, nil, err
		}
		return Int64(int64(u)), rest, nil
	case KindUint64:
		u, rest, err := readU64(b)
		if err != nil {
			return Value{}, nil, err
		}
		return Uint64(u), rest, nil
	case KindFloat64:
		u, rest, err := readU64(b)
		if err != nil {
			return Value{}, nil, err
		}
		return Float64(math.Float64frombits(u)), rest, nil
	case KindString:
		data, rest, err := readLenPrefixed(b)
		if err != nil {
			return Value{}, nil, err
		}
		return String(string(data)), rest, nil
	case KindArray:
		n, rest, err := readU32(b)
		if err != nil {
			return Value{}, nil, err
		}
		items := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			elemBytes, next, err := readLenPrefixed(rest)
			if err != nil {
				return Value{}, nil, err
			}
			elem, elemRest, err := decodeValue(elemBytes)
			if err != nil {
				return Value{}, nil, err
			}
			if len(elemRest) != 0 {
				return Value{}, nil, common.New(common.ErrDecode, "trailing bytes in array element")
			}
			items = append(items, elem)
			rest = next
		}
		return Array(items), rest, nil
	case KindObject:
		n, rest, err := readU32(b)
		if err != nil {
			return Value{}, nil, err
		}
		fields := make([]Field, 0, n)
		for i := uint32(0); i < n; i++ {
			keyBytes, next, err := readLenPrefixed(rest)
			if err != nil {
				return Value{}, nil, err
			}
			valBytes, next2, err := readLenPrefixed(next)
			if err != nil {
				return Value{}, nil, err
			}
			val, valRest, err := decodeValue(valBytes)
			if err != nil {
				return Value{}, nil, err
			}
			if len(valRest) != 0 {
				return Value{}, nil, common.New(common.ErrDecode, "trailing bytes in object value")
			}
			fields = append(fields, Field{Key: string(keyBytes), Value: val})
			rest = next2
		}
		return Object(fields), rest, nil
	default:
		return Value{}, nil, common.New(common.ErrDecode, "unknown value tag")
	}
}

func readU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, common.New(common.ErrDecode, "truncated length prefix")
	}
	return binary.LittleEndian.Uint32(b), b[4:], nil
}

func readU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, common.New(common.ErrDecode, "truncated 8-byte field")
	}
	return binary.LittleEndian.Uint64(b), b[8:], nil
}

func readLenPrefixed(b []byte) ([]byte, []byte, error) {
	n, rest, err := readU32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, common.New(common.ErrDecode, "truncated length-prefixed payload")
	}
	return rest[:n], rest[n:], nil
}

// FromJSON converts standard JSON text (the boundary format the outer SQL
// parser hands the engine, e.g. the backtick-wrapped literals of
// `INSERT INTO ... VALUES (\`{...}\`)`) into a Value tree. Unlike routing
// through a Go map, this decodes objects with a token stream so field
// order survives the round trip — §3's "Object key order within a
// document is preserved on write and on read" applies here too, since the
// write-ahead log encodes every logged document through this path.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Value{}, common.Wrap(common.ErrDecode, "parse json", err)
	}
	v, err := decodeJSONToken(dec, tok)
	if err != nil {
		return Value{}, common.Wrap(common.ErrDecode, "parse json", err)
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return Int64(int64(f)), nil
		}
		return Float64(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(items), nil
		case '{':
			var fields []Field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Object(fields), nil
		}
	}
	return Null(), nil
}

// ToJSON renders v back to standard JSON text, used when handing a
// materialized document back to the outer caller. Objects are written by
// walking v.fields positionally rather than through a Go map, so field
// order survives the round trip the same way Encode/Decode already does.
func ToJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, common.Wrap(common.ErrDecode, "encode json", err)
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInt64:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindUint64:
		buf.WriteString(strconv.FormatUint(v.u, 10))
	case KindFloat64:
		b, err := gojson.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := gojson.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := gojson.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			if err := writeJSON(buf, f.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}
