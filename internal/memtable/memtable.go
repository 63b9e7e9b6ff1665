// Package memtable implements the in-memory, mutable id→document buffer a
// collection accumulates writes into before a flush turns it into an
// immutable on-disk segment (§3 "MemTable", §4.3).
package memtable

import (
	"sync"

	"argusdb/internal/jsonb"
	"argusdb/internal/schema"
)

// entry is the tri-state value a key maps to: present-with-value,
// present-as-tombstone, or (by absence from the skip list) missing. Get
// distinguishes "missing" from "tombstone present" internally even though
// both surface as "not found" through Collection.Get (§4.3).
type entry struct {
	value     jsonb.Value
	tombstone bool
}

// Config configures a MemTable's internal skip list.
type Config struct {
	SkipListLevel int
}

// MemTable is the mapping Id → V described in §3. It also accumulates the
// structural union schema of every inserted/updated value.
type MemTable struct {
	mu     sync.RWMutex
	data   *skipList
	schema *schema.Summary
}

// New creates an empty MemTable.
func New(cfg Config) *MemTable {
	return &MemTable{
		data:   newSkipList(cfg.SkipListLevel),
		schema: &schema.Summary{},
	}
}

// Insert and Update have the same effect on a MemTable: put(id, v) with
// schema accumulation. Collection distinguishes them only for logging.
func (mt *MemTable) Insert(id string, v jsonb.Value) { mt.put(id, v) }
func (mt *MemTable) Update(id string, v jsonb.Value) { mt.put(id, v) }

// Delete is equivalent to Update(id, null) (§3 "Operation").
func (mt *MemTable) Delete(id string) {
	mt.put(id, jsonb.Null())
}

func (mt *MemTable) put(id string, v jsonb.Value) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.data.put(id, entry{value: v, tombstone: v.IsNull()})
	mt.schema.Merge(schema.Infer(v))
}

// Get returns (value, found, tombstone). found is false only when id has
// no entry at all; tombstone is true when the latest entry for id is the
// null tombstone, in which case value is jsonb.Null().
func (mt *MemTable) Get(id string) (value jsonb.Value, found bool, tombstone bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	e, ok := mt.data.get(id)
	if !ok {
		return jsonb.Value{}, false, false
	}
	return e.value, true, e.tombstone
}

// Len returns the number of live entries (including tombstones — they
// count toward the memtable threshold until compacted away).
func (mt *MemTable) Len() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.data.len()
}

// IsEmpty reports whether the memtable has no entries.
func (mt *MemTable) IsEmpty() bool {
	return mt.Len() == 0
}

// Schema returns the accumulated schema summary.
func (mt *MemTable) Schema() *schema.Summary {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.schema
}

// Record is one (id, value, tombstone) triple as handed to a segment
// writer during flush.
type Record struct {
	ID        string
	Value     jsonb.Value
	Tombstone bool
}

// Snapshot returns every entry ordered ascending by Id, ready for a
// segment writer to consume (§4.3 "flush ... orders its entries by Id").
// It does not clear the memtable; Collection.flush replaces the memtable
// reference after a successful write.
func (mt *MemTable) Snapshot() []Record {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	records := make([]Record, 0, mt.data.len())
	mt.data.forEach(func(key string, e entry) {
		records = append(records, Record{ID: key, Value: e.value, Tombstone: e.tombstone})
	})
	return records
}
