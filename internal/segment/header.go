// Package segment implements the immutable on-disk generation a memtable
// flush produces: a `.summary` file (header + membership filter + sparse
// index) and a `.data` file (sorted records), per §4.4 and §6.
package segment

import (
	"argusdb/internal/common"
	"argusdb/internal/jsonb"
	"argusdb/internal/schema"
)

// Header is the segment-identifying metadata stored at the front of the
// `.summary` file.
type Header struct {
	Timestamp  int64
	Collection string
	Schema     *schema.Summary
}

// encode renders the header as a binary-JSON-encoded object, per §6's
// `struct {timestamp:u64, collection:string, schema:opaque}`.
func (h Header) encode() []byte {
	fields := []jsonb.Field{
		{Key: "timestamp", Value: jsonb.Int64(h.Timestamp)},
		{Key: "collection", Value: jsonb.String(h.Collection)},
		{Key: "schema", Value: h.Schema.ToValue()},
	}
	return jsonb.Encode(jsonb.Object(fields))
}

func decodeHeader(raw []byte) (Header, error) {
	v, err := jsonb.Decode(raw)
	if err != nil {
		return Header{}, common.Wrap(common.ErrDecode, "decode segment header", err)
	}
	h := Header{}
	if ts, ok := v.Get("timestamp"); ok {
		h.Timestamp = ts.Int64()
	}
	if col, ok := v.Get("collection"); ok {
		h.Collection = col.Str()
	}
	if sch, ok := v.Get("schema"); ok {
		h.Schema = schema.FromValue(sch)
	} else {
		h.Schema = &schema.Summary{}
	}
	return h, nil
}
