package segment

import (
	"context"
	"testing"

	"argusdb/internal/block"
	"argusdb/internal/jsonb"
	"argusdb/internal/memtable"
	"argusdb/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) block.Backend {
	t.Helper()
	b, err := block.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	return b
}

func writeFixture(t *testing.T, backend block.Backend, basePath string, records []memtable.Record, opts WriteOptions) {
	t.Helper()
	sum := &schema.Summary{}
	for _, r := range records {
		sum.Merge(schema.Infer(r.Value))
	}
	require.NoError(t, Write(context.Background(), backend, basePath, records, sum, opts))
}

func rec(id string, n int64) memtable.Record {
	return memtable.Record{ID: id, Value: jsonb.Object([]jsonb.Field{{Key: "a", Value: jsonb.Int64(n)}})}
}

func tombstone(id string) memtable.Record {
	return memtable.Record{ID: id, Value: jsonb.Null(), Tombstone: true}
}

func TestWriteReadHeader(t *testing.T) {
	backend := newBackend(t)
	records := []memtable.Record{rec("a", 1), rec("b", 2)}
	writeFixture(t, backend, "jstable-0", records, WriteOptions{Timestamp: 12345, Collection: "test_col", IndexThreshold: 1024})

	header, err := ReadHeader(context.Background(), backend, "jstable-0")
	require.NoError(t, err)
	assert.EqualValues(t, 12345, header.Timestamp)
	assert.Equal(t, "test_col", header.Collection)
	assert.Equal(t, []schema.Type{schema.TypeObject}, header.Schema.Types)
}

func TestIteratorYieldsSortedRecords(t *testing.T) {
	backend := newBackend(t)
	records := []memtable.Record{rec("a", 1), rec("b", 2), rec("c", 3)}
	writeFixture(t, backend, "jstable-0", records, WriteOptions{Timestamp: 1, Collection: "c", IndexThreshold: 1024})

	it, err := Open(context.Background(), backend, "jstable-0")
	require.NoError(t, err)
	defer it.Close()

	var ids []string
	for {
		r, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestFilterMembership(t *testing.T) {
	backend := newBackend(t)
	records := []memtable.Record{rec("id1", 1), rec("id2", 2)}
	writeFixture(t, backend, "jstable-0", records, WriteOptions{Timestamp: 1, Collection: "c", IndexThreshold: 1024})

	filter, err := ReadFilter(context.Background(), backend, "jstable-0")
	require.NoError(t, err)
	assert.True(t, filter.MaybeContains("id1"))
	assert.True(t, filter.MaybeContains("id2"))
}

func TestGetPointLookup(t *testing.T) {
	backend := newBackend(t)
	records := []memtable.Record{rec("a", 1), rec("b", 2), rec("c", 3)}
	writeFixture(t, backend, "jstable-0", records, WriteOptions{Timestamp: 1, Collection: "c", IndexThreshold: 1024})

	v, found, tombstone, err := Get(context.Background(), backend, "jstable-0", "b")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, tombstone)
	field, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), field.Int64())

	_, found, _, err = Get(context.Background(), backend, "jstable-0", "z")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetTombstone(t *testing.T) {
	backend := newBackend(t)
	records := []memtable.Record{rec("a", 1), tombstone("b")}
	writeFixture(t, backend, "jstable-0", records, WriteOptions{Timestamp: 1, Collection: "c", IndexThreshold: 1024})

	_, found, tombstoneFlag, err := Get(context.Background(), backend, "jstable-0", "b")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, tombstoneFlag)
}

func TestSparseIndexFirstEntryAtZero(t *testing.T) {
	backend := newBackend(t)
	big := string(make([]byte, 600))
	records := []memtable.Record{
		{ID: "a", Value: jsonb.String(big)},
		{ID: "b", Value: jsonb.String(big)},
		{ID: "c", Value: jsonb.String(big)},
		{ID: "d", Value: jsonb.String(big)},
	}
	writeFixture(t, backend, "jstable-0", records, WriteOptions{Timestamp: 1, Collection: "c", IndexThreshold: 1024})

	index, err := ReadIndex(context.Background(), backend, "jstable-0")
	require.NoError(t, err)
	require.NotEmpty(t, index)
	assert.Equal(t, "a", index[0].ID)
	assert.EqualValues(t, 0, index[0].Offset)
	for i := 1; i < len(index); i++ {
		assert.GreaterOrEqual(t, index[i].Offset-index[i-1].Offset, uint64(1024))
	}
}

func TestMergeByMaxTimestampAndDropsTombstones(t *testing.T) {
	backend := newBackend(t)
	writeFixture(t, backend, "jstable-0", []memtable.Record{rec("id1", 1)}, WriteOptions{Timestamp: 100, Collection: "test_col", IndexThreshold: 1024})
	writeFixture(t, backend, "jstable-1", []memtable.Record{rec("id1", 2), tombstone("id2")}, WriteOptions{Timestamp: 200, Collection: "test_col", IndexThreshold: 1024})

	merged, err := Merge(context.Background(), backend, []string{"jstable-0", "jstable-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 200, merged.Timestamp)
	assert.Equal(t, "test_col", merged.Collection)
	require.Len(t, merged.Records, 1)
	assert.Equal(t, "id1", merged.Records[0].ID)
	v, ok := merged.Records[0].Value.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Int64())
}

func TestSegmentExistsAndRemove(t *testing.T) {
	backend := newBackend(t)
	writeFixture(t, backend, "jstable-0", []memtable.Record{rec("a", 1)}, WriteOptions{Timestamp: 1, Collection: "c", IndexThreshold: 1024})

	ok, err := Exists(context.Background(), backend, "jstable-0")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, Remove(context.Background(), backend, "jstable-0"))
	ok, err = Exists(context.Background(), backend, "jstable-0")
	require.NoError(t, err)
	assert.False(t, ok)
}
