package collection

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"argusdb/internal/block"
	"argusdb/internal/common"
	"argusdb/internal/jsonb"
	"argusdb/internal/memtable"
	"argusdb/internal/merge"
	"argusdb/internal/schema"
	"argusdb/internal/segment"
	"argusdb/internal/wal"
)

const defaultFalsePositiveRate = 0.01

// generation is one live on-disk segment tracked in memory: its base path
// and a cached membership filter, following §5's "load each generation's
// filter into the collection's filter list".
type generation struct {
	basePath string
	filter   *segment.Filter
}

// Collection owns one memtable, its segment generations, and its
// write-ahead logger (§3 "Collection (C)"). Insert/Update/Delete/flush/
// compact take mu's exclusive lock; Get/Scan take its shared lock, so
// concurrent readers are permitted while write mutations and compaction
// are serialized against them (§5).
type Collection struct {
	Name    string
	dir     string
	logDir  string
	backend block.Backend
	opts    Options

	mu   sync.RWMutex
	mt   *memtable.MemTable
	gens []generation
	log  wal.Log

	worker *worker
}

const logFileName = "argus.log"

func segmentBasePath(dir string, n int) string {
	return fmt.Sprintf("%s/jstable-%d", dir, n)
}

// New creates a fresh, empty Collection in dir (already sanitized by the
// caller — see sanitizeName in the root argusdb package). logDir is the
// local filesystem directory the write-ahead log lives in: the WAL always
// writes through the OS filesystem directly rather than through backend,
// since it needs append+rename semantics a remote block.Backend (e.g. the
// S3 backend) cannot offer (§4.2, §6 "argus.log").
func New(ctx context.Context, backend block.Backend, dir string, logDir string, name string, opts Options) (*Collection, error) {
	if opts.FalsePositiveRate <= 0 {
		opts.FalsePositiveRate = defaultFalsePositiveRate
	}
	if opts.MemtableThreshold <= 0 {
		opts.MemtableThreshold = 1000
	}
	if opts.CompactionSegmentThreshold <= 0 {
		opts.CompactionSegmentThreshold = 4
	}
	if opts.IndexThreshold == 0 {
		opts.IndexThreshold = 4096
	}

	c := &Collection{
		Name:    name,
		dir:     dir,
		logDir:  logDir,
		backend: backend,
		opts:    opts,
		mt:      memtable.New(memtable.Config{}),
	}

	var log wal.Log
	if opts.skipLogRotation() {
		log = wal.NullLog{}
	} else {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, common.Wrap(common.ErrIO, "create collection log directory", err)
		}
		logger, err := wal.NewLogger(opts.walConfig(logDir + "/" + logFileName))
		if err != nil {
			return nil, err
		}
		log = logger
	}
	c.log = log

	if opts.Async {
		c.worker = startWorker(c)
	}
	return c, nil
}

// Insert implements §4.6 insert: flush-if-full, generate an id, log, put.
func (c *Collection) Insert(ctx context.Context, doc jsonb.Value) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mt.Len() >= c.opts.MemtableThreshold {
		if err := c.flush(ctx); err != nil {
			return "", err
		}
	}

	id := common.NewID().String()
	if err := c.log.Append(wal.Insert(id, doc)); err != nil {
		return "", err
	}
	c.mt.Insert(id, doc)
	return id, nil
}

// Update implements §4.6 update: unconditional log-then-apply, no
// existence check (§9 open question — the source logs unconditionally and
// this behavior is preserved).
func (c *Collection) Update(ctx context.Context, id string, doc jsonb.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.log.Append(wal.Update(id, doc)); err != nil {
		return err
	}
	c.mt.Update(id, doc)
	return nil
}

// Delete implements §4.6 delete: equivalent to Update(id, null).
func (c *Collection) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.log.Append(wal.Delete(id)); err != nil {
		return err
	}
	c.mt.Delete(id)
	return nil
}

// Get implements §4.6 get: memtable first, then segments newest-to-oldest
// gated by each generation's cached filter. found is false for both
// "never written" and "tombstoned" — callers needing to distinguish use
// the memtable/segment packages directly.
func (c *Collection) Get(ctx context.Context, id string) (value jsonb.Value, found bool, err error) {
	c.mu.RLock()
	if v, ok, tomb := c.mt.Get(id); ok {
		c.mu.RUnlock()
		if tomb {
			return jsonb.Value{}, false, nil
		}
		return v, true, nil
	}
	gens := append([]generation(nil), c.gens...)
	c.mu.RUnlock()

	for i := len(gens) - 1; i >= 0; i-- {
		gen := gens[i]
		if !gen.filter.MaybeContains(id) {
			continue
		}
		v, ok, tomb, err := segment.Get(ctx, c.backend, gen.basePath, id)
		if err != nil {
			return jsonb.Value{}, false, err
		}
		if !ok {
			continue
		}
		if tomb {
			return jsonb.Value{}, false, nil
		}
		return v, true, nil
	}
	return jsonb.Value{}, false, nil
}

// Cursor is a scan result stream backed by the merged-iterator layer
// (§4.5), opened over a consistent snapshot of the memtable and every
// live generation at the moment Scan was called.
type Cursor struct {
	it      *merge.Iterator
	closers []func() error
}

// Next yields the next live, non-tombstoned (id, Document) pair sorted
// ascending by id.
func (cur *Cursor) Next() (id string, doc merge.Document, ok bool, err error) {
	return cur.it.Next()
}

// Close releases every segment iterator Scan opened.
func (cur *Cursor) Close() error {
	var first error
	for _, closeFn := range cur.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Scan implements §4.6 scan: a merged stream over the memtable and every
// generation, memtable first then generations newest-to-oldest per §4.5's
// priority order.
func (c *Collection) Scan(ctx context.Context) (*Cursor, error) {
	c.mu.RLock()
	snapshot := c.mt.Snapshot()
	gens := append([]generation(nil), c.gens...)
	c.mu.RUnlock()

	sources := make([]merge.Source, 0, len(gens)+1)
	sources = append(sources, merge.MemtableSource(snapshot))

	var closers []func() error
	for i := len(gens) - 1; i >= 0; i-- {
		it, err := segment.Open(ctx, c.backend, gens[i].basePath)
		if err != nil {
			for _, closeFn := range closers {
				closeFn()
			}
			return nil, err
		}
		sources = append(sources, merge.SegmentSource(it))
		closers = append(closers, it.Close)
	}

	return &Cursor{it: merge.New(sources), closers: closers}, nil
}

// WaitForFlush blocks until every flush/compaction queued on the
// background worker has completed (§4.7). It is a no-op when the
// collection runs synchronously.
func (c *Collection) WaitForFlush() {
	if c.worker != nil {
		c.worker.wait()
	}
}

// Close releases the collection's logger and, if running asynchronously,
// stops its background worker after draining queued work.
func (c *Collection) Close() error {
	if c.worker != nil {
		c.worker.stop()
	}
	return c.log.Close()
}

// Drop unlinks every on-disk file belonging to the collection — its
// segment generations and its write-ahead log — then closes it. The DB's
// `DROP COLLECTION` maps to this (§6).
func (c *Collection) Drop(ctx context.Context) error {
	if c.worker != nil {
		c.worker.stop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, g := range c.gens {
		if err := segment.Remove(ctx, c.backend, g.basePath); err != nil {
			return err
		}
	}
	if err := c.log.Close(); err != nil {
		return err
	}
	if !c.opts.skipLogRotation() {
		logFilePath := c.logDir + "/" + logFileName
		_ = os.Remove(logFilePath)
		_ = os.Remove(logFilePath + ".1")
	}
	return nil
}

// flushLocked implements §4.6 flush. Caller must hold mu.
func (c *Collection) flushLocked(ctx context.Context) error {
	records := c.mt.Snapshot()
	genNum := len(c.gens)
	basePath := segmentBasePath(c.dir, genNum)

	opts := segment.WriteOptions{
		Timestamp:         wallClockMillis(c.opts),
		Collection:        c.Name,
		IndexThreshold:    c.opts.IndexThreshold,
		FalsePositiveRate: c.opts.FalsePositiveRate,
	}
	if err := segment.Write(ctx, c.backend, basePath, records, c.mt.Schema(), opts); err != nil {
		return err
	}

	filter, err := segment.ReadFilter(ctx, c.backend, basePath)
	if err != nil {
		return err
	}

	c.gens = append(c.gens, generation{basePath: basePath, filter: filter})
	c.mt = memtable.New(memtable.Config{})
	if err := c.log.Rotate(); err != nil {
		return err
	}

	if len(c.gens) >= c.opts.CompactionSegmentThreshold {
		return c.compactLocked(ctx)
	}
	return nil
}

// compactLocked implements §4.6 compact. Caller must hold mu.
func (c *Collection) compactLocked(ctx context.Context) error {
	basePaths := make([]string, len(c.gens))
	for i, g := range c.gens {
		basePaths[i] = g.basePath
	}

	merged, err := segment.Merge(ctx, c.backend, basePaths)
	if err != nil {
		return err
	}

	for _, base := range basePaths {
		if err := segment.Remove(ctx, c.backend, base); err != nil {
			return err
		}
	}

	newBase := segmentBasePath(c.dir, 0)
	writeOpts := segment.WriteOptions{
		Timestamp:         merged.Timestamp,
		Collection:        merged.Collection,
		IndexThreshold:    c.opts.IndexThreshold,
		FalsePositiveRate: c.opts.FalsePositiveRate,
	}
	if err := segment.Write(ctx, c.backend, newBase, merged.Records, merged.Schema, writeOpts); err != nil {
		return err
	}

	filter, err := segment.ReadFilter(ctx, c.backend, newBase)
	if err != nil {
		return err
	}
	c.gens = []generation{{basePath: newBase, filter: filter}}
	return nil
}

// Flush exposes flush for callers that need to force one outside the
// insert-threshold path. It does nothing when the memtable is empty.
func (c *Collection) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mt.IsEmpty() {
		return nil
	}
	return c.flush(ctx)
}

// flush runs a flush either inline or via the background worker,
// depending on Options.Async. Caller must hold mu.
func (c *Collection) flush(ctx context.Context) error {
	if c.worker != nil {
		return c.worker.enqueueFlush(ctx)
	}
	return c.flushLocked(ctx)
}

// SegmentCount reports the number of live on-disk generations, used by
// tests asserting §8's flush/compaction properties.
func (c *Collection) SegmentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.gens)
}

// MemtableLen reports the current memtable size.
func (c *Collection) MemtableLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mt.Len()
}

// Schema returns the accumulated structural schema across the memtable
// and every generation's stored header (used by introspection, not by
// query execution — §1 keeps the schema object opaque to the core).
func (c *Collection) Schema(ctx context.Context) (*schema.Summary, error) {
	sum := &schema.Summary{}
	c.mu.RLock()
	sum.Merge(c.mt.Schema())
	gens := append([]generation(nil), c.gens...)
	c.mu.RUnlock()

	for _, g := range gens {
		header, err := segment.ReadHeader(ctx, c.backend, g.basePath)
		if err != nil {
			return nil, err
		}
		sum.Merge(header.Schema)
	}
	return sum, nil
}

func wallClockMillis(opts Options) int64 {
	if opts.now != nil {
		return opts.now()
	}
	return time.Now().UnixMilli()
}
