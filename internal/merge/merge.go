// Package merge implements the read-path K-way merge described in §4.5:
// a stream of (id, V) pairs drawn from the memtable and every live segment
// generation, sorted ascending by id, with shadowing resolved by source
// priority and tombstones suppressed. This is distinct from a segment
// compaction merge (internal/segment's Merge), which combines on-disk
// generations into a new generation rather than serving a live read.
package merge

import (
	"argusdb/internal/jsonb"
)

// Document is one source's view of a key's current value. A memtable
// document is already materialized; a segment document defers decoding
// (§9 "Lazy documents via sum types") until Value or RawPair is called,
// so a predicate that never needs the full document never pays for it.
type Document interface {
	IsTombstone() bool
	Value() (jsonb.Value, error)
	// RawPair returns the still-encoded (id, V) pair bytes and true when
	// this document is segment-backed; (nil, false) for a memtable
	// document, which has no raw form.
	RawPair() ([]byte, bool)
}

// Source yields (id, Document) pairs in ascending id order. The memtable
// and each open segment iterator satisfy this interface.
type Source interface {
	// Next advances to the next entry, returning ok=false at end of
	// stream.
	Next() (id string, doc Document, ok bool, err error)
}

// peekSource buffers one entry of lookahead on top of a Source so the
// merge can compare candidate minimums without consuming them.
type peekSource struct {
	src      Source
	id       string
	doc      Document
	buffered bool
	done     bool
}

func newPeekSource(src Source) *peekSource {
	return &peekSource{src: src}
}

func (p *peekSource) fill() error {
	if p.buffered || p.done {
		return nil
	}
	id, doc, ok, err := p.src.Next()
	if err != nil {
		return err
	}
	if !ok {
		p.done = true
		return nil
	}
	p.id, p.doc = id, doc
	p.buffered = true
	return nil
}

func (p *peekSource) consume() {
	p.buffered = false
}

// Iterator is the merged, priority-resolved, tombstone-free stream
// described in §4.5. Sources must be supplied in priority order: the
// memtable first, then segments newest-to-oldest.
type Iterator struct {
	sources []*peekSource
}

// New builds an Iterator over sources, which must already be ordered by
// priority (highest first).
func New(sources []Source) *Iterator {
	peeks := make([]*peekSource, len(sources))
	for i, s := range sources {
		peeks[i] = newPeekSource(s)
	}
	return &Iterator{sources: peeks}
}

// Next implements the §4.5 algorithm: peek all sources, take the minimum
// id, retain the highest-priority source's document among ties, and loop
// past tombstones.
func (it *Iterator) Next() (id string, doc Document, ok bool, err error) {
	for {
		for _, p := range it.sources {
			if err := p.fill(); err != nil {
				return "", nil, false, err
			}
		}

		minID := ""
		haveMin := false
		for _, p := range it.sources {
			if !p.buffered {
				continue
			}
			if !haveMin || p.id < minID {
				minID = p.id
				haveMin = true
			}
		}
		if !haveMin {
			return "", nil, false, nil
		}

		var retained Document
		for _, p := range it.sources {
			if !p.buffered || p.id != minID {
				continue
			}
			if retained == nil {
				retained = p.doc
			}
			p.consume()
		}

		if retained.IsTombstone() {
			continue
		}
		return minID, retained, true, nil
	}
}
