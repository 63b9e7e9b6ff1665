package merge

import (
	"argusdb/internal/jsonb"
	"argusdb/internal/memtable"
	"argusdb/internal/segment"
)

// memDocument is a memtable entry, already materialized.
type memDocument struct {
	value     jsonb.Value
	tombstone bool
}

func (d memDocument) IsTombstone() bool                 { return d.tombstone }
func (d memDocument) Value() (jsonb.Value, error)       { return d.value, nil }
func (d memDocument) RawPair() ([]byte, bool)           { return nil, false }

// memtableSource adapts a memtable snapshot (already sorted ascending by
// id, per memtable.Snapshot) to Source.
type memtableSource struct {
	records []memtable.Record
	pos     int
}

// MemtableSource wraps a memtable snapshot as a merge Source.
func MemtableSource(records []memtable.Record) Source {
	return &memtableSource{records: records}
}

func (m *memtableSource) Next() (string, Document, bool, error) {
	if m.pos >= len(m.records) {
		return "", nil, false, nil
	}
	r := m.records[m.pos]
	m.pos++
	return r.ID, memDocument{value: r.Value, tombstone: r.Tombstone}, true, nil
}

// segDocument defers decoding to the moment a caller actually needs the
// full value, and exposes the still-encoded pair for raw field access.
type segDocument struct {
	rec segment.Record
}

func (d segDocument) IsTombstone() bool           { return d.rec.IsTombstone() }
func (d segDocument) Value() (jsonb.Value, error) { return d.rec.Value() }
func (d segDocument) RawPair() ([]byte, bool)     { return d.rec.Raw, true }

// segmentSource adapts a segment.Iterator to Source.
type segmentSource struct {
	it *segment.Iterator
}

// SegmentSource wraps an open segment iterator as a merge Source.
func SegmentSource(it *segment.Iterator) Source {
	return &segmentSource{it: it}
}

func (s *segmentSource) Next() (string, Document, bool, error) {
	rec, ok, err := s.it.Next()
	if err != nil {
		return "", nil, false, err
	}
	if !ok {
		return "", nil, false, nil
	}
	return rec.ID, segDocument{rec: rec}, true, nil
}
