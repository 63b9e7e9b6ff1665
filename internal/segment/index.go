package segment

import (
	"sort"

	"argusdb/internal/common"
	"argusdb/internal/jsonb"
)

// IndexEntry is one sparse-index pair: an id and the byte offset of its
// record's length prefix in the `.data` file (§4.4, GLOSSARY "Sparse
// index").
type IndexEntry struct {
	ID     string
	Offset uint64
}

func encodeIndex(entries []IndexEntry) []byte {
	items := make([]jsonb.Value, len(entries))
	for i, e := range entries {
		items[i] = jsonb.Array([]jsonb.Value{jsonb.String(e.ID), jsonb.Uint64(e.Offset)})
	}
	return jsonb.Encode(jsonb.Array(items))
}

func decodeIndex(raw []byte) ([]IndexEntry, error) {
	v, err := jsonb.Decode(raw)
	if err != nil {
		return nil, common.Wrap(common.ErrDecode, "decode segment index", err)
	}
	items := v.Items()
	entries := make([]IndexEntry, 0, len(items))
	for _, item := range items {
		idVal, ok := item.Index(0)
		if !ok {
			continue
		}
		offVal, ok := item.Index(1)
		if !ok {
			continue
		}
		entries = append(entries, IndexEntry{ID: idVal.Str(), Offset: offVal.Uint64()})
	}
	return entries, nil
}

// seekEntry returns the last index entry whose id is ≤ target, the
// seek-then-scan starting point for a point lookup (§4.4's design-note
// supplement on the sparse index). ok is false only when entries is empty
// or target sorts before every indexed id.
func seekEntry(entries []IndexEntry, target string) (entry IndexEntry, ok bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].ID > target })
	if i == 0 {
		return IndexEntry{}, false
	}
	return entries[i-1], true
}
