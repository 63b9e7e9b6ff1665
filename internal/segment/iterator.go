package segment

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"

	"argusdb/internal/block"
	"argusdb/internal/common"
	"argusdb/internal/jsonb"
)

// Record is one entry read off a segment's `.data` file: an id plus the
// still-encoded (id, V) pair bytes. The document half is decoded lazily —
// callers extract named fields via jsonb.GetByNameRaw on Raw, or call
// Value to fully materialize (§3 "lazy document").
type Record struct {
	ID  string
	Raw []byte
}

// IsTombstone reports whether this record's value is the null tombstone,
// by inspecting only the value position of the pair (§3).
func (r Record) IsTombstone() bool {
	valueRaw, err := jsonb.PairValueRaw(r.Raw)
	if err != nil {
		return false
	}
	return jsonb.IsNullRaw(valueRaw)
}

// Value fully decodes the document half of the pair.
func (r Record) Value() (jsonb.Value, error) {
	valueRaw, err := jsonb.PairValueRaw(r.Raw)
	if err != nil {
		return jsonb.Value{}, err
	}
	return jsonb.DecodeRaw(valueRaw)
}

// Iterator reads records from a segment's `.data` file in ascending id
// order, supporting Seek to a byte offset from the sparse index (§4.4).
type Iterator struct {
	closer io.Closer
	sr     *io.SectionReader
	br     *bufio.Reader
	Header Header
}

// Open opens an Iterator positioned at the start of the `.data` file.
func Open(ctx context.Context, backend block.Backend, basePath string) (*Iterator, error) {
	header, err := ReadHeader(ctx, backend, basePath)
	if err != nil {
		return nil, err
	}
	_, dataPath := Paths(basePath)
	info, err := backend.Stat(ctx, dataPath)
	if err != nil {
		return nil, common.Wrap(common.ErrIO, "stat segment data", err)
	}
	ra, err := backend.OpenReaderAt(ctx, dataPath)
	if err != nil {
		return nil, common.Wrap(common.ErrIO, "open segment data", err)
	}
	sr := io.NewSectionReader(ra, 0, info.Size)
	return &Iterator{closer: ra, sr: sr, br: bufio.NewReader(sr), Header: header}, nil
}

// Seek repositions the iterator so the next Next() reads the record at
// byte offset.
func (it *Iterator) Seek(offset uint64) error {
	if _, err := it.sr.Seek(int64(offset), io.SeekStart); err != nil {
		return common.Wrap(common.ErrIO, "seek segment data", err)
	}
	it.br.Reset(it.sr)
	return nil
}

// Next returns the next record, or (Record{}, false, nil) at end of
// stream.
func (it *Iterator) Next() (Record, bool, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(it.br, lenBuf[:]); err != nil {
		if err == io.EOF {
			return Record{}, false, nil
		}
		return Record{}, false, common.Wrap(common.ErrIO, "read record length", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	raw := make([]byte, n)
	if _, err := io.ReadFull(it.br, raw); err != nil {
		return Record{}, false, common.Wrap(common.ErrDecode, "read record payload", err)
	}
	id, err := jsonb.DecodePairID(raw)
	if err != nil {
		return Record{}, false, err
	}
	return Record{ID: id, Raw: raw}, true, nil
}

// Close releases the underlying file handle.
func (it *Iterator) Close() error {
	return it.closer.Close()
}

// Get performs the filter-gated, index-accelerated point lookup described
// in §4.6 step 2 and the sparse-index seek-then-scan supplement: test the
// filter first, then (on a possible hit) seek to the last indexed id at or
// before target and scan forward for an exact match.
func Get(ctx context.Context, backend block.Backend, basePath string, target string) (value jsonb.Value, found bool, tombstone bool, err error) {
	filter, err := ReadFilter(ctx, backend, basePath)
	if err != nil {
		return jsonb.Value{}, false, false, err
	}
	if !filter.MaybeContains(target) {
		return jsonb.Value{}, false, false, nil
	}

	index, err := ReadIndex(ctx, backend, basePath)
	if err != nil {
		return jsonb.Value{}, false, false, err
	}

	it, err := Open(ctx, backend, basePath)
	if err != nil {
		return jsonb.Value{}, false, false, err
	}
	defer it.Close()

	if startEntry, ok := seekEntry(index, target); ok {
		if err := it.Seek(startEntry.Offset); err != nil {
			return jsonb.Value{}, false, false, err
		}
	}

	for {
		rec, ok, err := it.Next()
		if err != nil {
			return jsonb.Value{}, false, false, err
		}
		if !ok {
			return jsonb.Value{}, false, false, nil
		}
		if rec.ID == target {
			if rec.IsTombstone() {
				return jsonb.Value{}, true, true, nil
			}
			v, err := rec.Value()
			if err != nil {
				return jsonb.Value{}, false, false, err
			}
			return v, true, false, nil
		}
		if rec.ID > target {
			return jsonb.Value{}, false, false, nil
		}
	}
}
