package memtable

import (
	"testing"

	"argusdb/internal/jsonb"
	"argusdb/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	mt := New(Config{})
	mt.Insert("id-1", jsonb.Int64(42))

	v, found, tombstone := mt.Get("id-1")
	require.True(t, found)
	assert.False(t, tombstone)
	assert.Equal(t, int64(42), v.Int64())
}

func TestGetMissingVsTombstone(t *testing.T) {
	mt := New(Config{})
	_, found, _ := mt.Get("nope")
	assert.False(t, found)

	mt.Delete("id-1")
	v, found, tombstone := mt.Get("id-1")
	assert.True(t, found)
	assert.True(t, tombstone)
	assert.True(t, v.IsNull())
}

func TestUpdateOverwrites(t *testing.T) {
	mt := New(Config{})
	mt.Insert("id-1", jsonb.Int64(1))
	mt.Update("id-1", jsonb.Int64(2))
	v, found, _ := mt.Get("id-1")
	require.True(t, found)
	assert.Equal(t, int64(2), v.Int64())
	assert.Equal(t, 1, mt.Len())
}

func TestSnapshotOrderedByID(t *testing.T) {
	mt := New(Config{})
	mt.Insert("c", jsonb.Int64(3))
	mt.Insert("a", jsonb.Int64(1))
	mt.Insert("b", jsonb.Int64(2))

	records := mt.Snapshot()
	require.Len(t, records, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{records[0].ID, records[1].ID, records[2].ID})
}

func TestSchemaAccumulation(t *testing.T) {
	mt := New(Config{})
	doc1, _ := jsonb.FromJSON([]byte(`{"a":1}`))
	doc2, _ := jsonb.FromJSON([]byte(`{"a":"x","b":true}`))
	mt.Insert("1", doc1)
	mt.Insert("2", doc2)

	s := mt.Schema()
	assert.Equal(t, []schema.Type{schema.TypeObject}, s.Types)
	assert.ElementsMatch(t, []schema.Type{schema.TypeInteger, schema.TypeString}, s.Properties["a"].Types)
	assert.Equal(t, []schema.Type{schema.TypeBoolean}, s.Properties["b"].Types)
}

func TestIsEmpty(t *testing.T) {
	mt := New(Config{})
	assert.True(t, mt.IsEmpty())
	mt.Insert("1", jsonb.Bool(true))
	assert.False(t, mt.IsEmpty())
}
