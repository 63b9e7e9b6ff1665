// Package collection implements the LSM-structured collection described in
// §3 "Collection (C)" and §4.6: one memtable, an ordered list of on-disk
// segment generations, one write-ahead logger, and the flush/compaction
// machinery that turns memtable pressure into new generations.
package collection

import (
	"argusdb/internal/wal"
)

// Options configures a Collection's thresholds and write-ahead log. These
// are passed at construction the way the teacher configures its memtable
// and WAL layers — plain structs, no global config loader (see the
// project's configuration notes).
type Options struct {
	// MemtableThreshold is the entry count at or above which insert
	// triggers a synchronous flush (§4.6 insert step 1).
	MemtableThreshold int
	// CompactionSegmentThreshold is the segment count at which flush
	// triggers compaction (§4.6 flush step 5).
	CompactionSegmentThreshold int
	// IndexThreshold is the cumulative byte distance between sparse index
	// entries written by a segment flush (§4.4 step 3).
	IndexThreshold uint64
	// FalsePositiveRate configures each segment's membership filter
	// (§4.4 step 2). Zero uses the package default.
	FalsePositiveRate float64
	// LogRotationThreshold, if zero, substitutes wal.NullLog for the
	// collection's logger (§4.2 "A null variant ... is substituted when
	// log rotation threshold is unset").
	LogRotationThreshold uint64
	// Async runs flush and compaction on a single background worker per
	// collection instead of on the calling goroutine (§4.7). WaitForFlush
	// blocks until all queued work has completed either way.
	Async bool
	// OnLogAppend is forwarded to wal.Config.OnAppend.
	OnLogAppend func(opType, id string)
	// now supplies millisecond timestamps; overridable for deterministic
	// tests. Defaults to wal's own clock when nil.
	now func() int64
}

func (o Options) skipLogRotation() bool {
	return o.LogRotationThreshold == 0
}

func (o Options) walConfig(path string) wal.Config {
	return wal.Config{
		Path:              path,
		RotationThreshold: o.LogRotationThreshold,
		OnAppend:          o.OnLogAppend,
		Now:               o.now,
	}
}
