package segment

import (
	"context"
	"sort"

	"argusdb/internal/block"
	"argusdb/internal/jsonb"
	"argusdb/internal/memtable"
	"argusdb/internal/schema"
)

// Merged is the result of merging a set of segments during compaction:
// the new segment's metadata and its final, tombstone-free record set
// ordered ascending by Id.
type Merged struct {
	Timestamp  int64
	Collection string
	Schema     *schema.Summary
	Records    []memtable.Record
}

// Merge reads every segment at basePaths and combines them into one
// Merged result following §4.9/the original's merge-by-timestamp rule
// (supplemented in full spec): the merged timestamp is the MAXIMUM of the
// inputs' timestamps, documents are merged oldest-to-newest by segment
// timestamp so a newer segment's copy of a key always wins, and
// tombstoned keys are dropped from the final set.
func Merge(ctx context.Context, backend block.Backend, basePaths []string) (Merged, error) {
	type loaded struct {
		header  Header
		records []memtable.Record
	}
	tables := make([]loaded, 0, len(basePaths))
	var collection string
	for _, base := range basePaths {
		header, err := ReadHeader(ctx, backend, base)
		if err != nil {
			return Merged{}, err
		}
		records, err := readAll(ctx, backend, base)
		if err != nil {
			return Merged{}, err
		}
		tables = append(tables, loaded{header: header, records: records})
		if collection == "" {
			collection = header.Collection
		}
	}

	sort.SliceStable(tables, func(i, j int) bool { return tables[i].header.Timestamp < tables[j].header.Timestamp })

	merged := make(map[string]memtable.Record)
	mergedSchema := &schema.Summary{}
	var maxTimestamp int64
	for _, t := range tables {
		if t.header.Timestamp > maxTimestamp {
			maxTimestamp = t.header.Timestamp
		}
		mergedSchema.Merge(t.header.Schema)
		for _, r := range t.records {
			merged[r.ID] = r
		}
	}

	ids := make([]string, 0, len(merged))
	for id, rec := range merged {
		if rec.Tombstone {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]memtable.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, merged[id])
	}

	return Merged{Timestamp: maxTimestamp, Collection: collection, Schema: mergedSchema, Records: records}, nil
}

func readAll(ctx context.Context, backend block.Backend, basePath string) ([]memtable.Record, error) {
	it, err := Open(ctx, backend, basePath)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var records []memtable.Record
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if rec.IsTombstone() {
			records = append(records, memtable.Record{ID: rec.ID, Value: jsonb.Null(), Tombstone: true})
			continue
		}
		v, err := rec.Value()
		if err != nil {
			return nil, err
		}
		records = append(records, memtable.Record{ID: rec.ID, Value: v, Tombstone: false})
	}
	return records, nil
}
