package collection

import (
	"context"
	"testing"

	"argusdb/internal/block"
	"argusdb/internal/jsonb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollection(t *testing.T, opts Options) (*Collection, block.Backend, string) {
	t.Helper()
	root := t.TempDir()
	backend, err := block.NewLocalBackend(root)
	require.NoError(t, err)
	c, err := New(context.Background(), backend, "t", root+"/t", "t", opts)
	require.NoError(t, err)
	return c, backend, root
}

func docA(n int64) jsonb.Value {
	return jsonb.Object([]jsonb.Field{{Key: "a", Value: jsonb.Int64(n)}})
}

func TestFlushThreshold(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCollection(t, Options{MemtableThreshold: 10, CompactionSegmentThreshold: 100})

	for i := int64(0); i < 10; i++ {
		_, err := c.Insert(ctx, docA(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 0, c.SegmentCount())

	_, err := c.Insert(ctx, docA(10))
	require.NoError(t, err)
	assert.Equal(t, 1, c.SegmentCount())

	count := 0
	cur, err := c.Scan(ctx)
	require.NoError(t, err)
	defer cur.Close()
	for {
		_, _, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 11, count)
}

func TestCompactionTriggersAndDropsTombstones(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCollection(t, Options{MemtableThreshold: 10, CompactionSegmentThreshold: 5})

	d, err := c.Insert(ctx, docA(-1))
	require.NoError(t, err)

	for round := 0; round < 4; round++ {
		for i := int64(0); i < 10; i++ {
			_, err := c.Insert(ctx, docA(i))
			require.NoError(t, err)
		}
	}
	require.NoError(t, c.Delete(ctx, d))
	for i := int64(0); i < 9; i++ {
		_, err := c.Insert(ctx, docA(i))
		require.NoError(t, err)
	}
	_, err = c.Insert(ctx, docA(999))
	require.NoError(t, err)

	assert.Equal(t, 1, c.SegmentCount())

	_, found, err := c.Get(ctx, d)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecoveryFromLog(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend, err := block.NewLocalBackend(root)
	require.NoError(t, err)

	opts := Options{MemtableThreshold: 1000, CompactionSegmentThreshold: 100, LogRotationThreshold: 1 << 20}
	c, err := New(ctx, backend, "t", root+"/t", "t", opts)
	require.NoError(t, err)

	id1, err := c.Insert(ctx, docA(1))
	require.NoError(t, err)
	id2, err := c.Insert(ctx, docA(2))
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, id2))
	require.NoError(t, c.Close())

	recovered, err := Open(ctx, backend, "t", root+"/t", "t", opts)
	require.NoError(t, err)

	v, found, err := recovered.Get(ctx, id1)
	require.NoError(t, err)
	require.True(t, found)
	fv, _ := v.Get("a")
	assert.Equal(t, int64(1), fv.Int64())

	_, found, err = recovered.Get(ctx, id2)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestShadowingAcrossMemtableAndSegment(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCollection(t, Options{MemtableThreshold: 5, CompactionSegmentThreshold: 100})

	id, err := c.Insert(ctx, jsonb.Object([]jsonb.Field{{Key: "val", Value: jsonb.Int64(0)}}))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.Insert(ctx, docA(int64(i)))
		require.NoError(t, err)
	}
	require.Equal(t, 1, c.SegmentCount())

	require.NoError(t, c.Update(ctx, id, jsonb.Object([]jsonb.Field{{Key: "val", Value: jsonb.Int64(999)}})))

	v, found, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	fv, _ := v.Get("val")
	assert.Equal(t, int64(999), fv.Int64())

	cur, err := c.Scan(ctx)
	require.NoError(t, err)
	defer cur.Close()
	var sawUpdated bool
	for {
		gotID, doc, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		if gotID == id {
			dv, err := doc.Value()
			require.NoError(t, err)
			fv, _ := dv.Get("val")
			assert.Equal(t, int64(999), fv.Int64())
			sawUpdated = true
		}
	}
	assert.True(t, sawUpdated)
}

func TestGetReportsMissingAndDeletedAsNotFound(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCollection(t, Options{MemtableThreshold: 1000, CompactionSegmentThreshold: 100})

	_, found, err := c.Get(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, found)

	id, err := c.Insert(ctx, docA(1))
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, id))

	_, found, err = c.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWaitForFlushWithAsyncWorker(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCollection(t, Options{MemtableThreshold: 3, CompactionSegmentThreshold: 100, Async: true})
	defer c.Close()

	for i := int64(0); i < 4; i++ {
		_, err := c.Insert(ctx, docA(i))
		require.NoError(t, err)
	}
	c.WaitForFlush()
	assert.Equal(t, 1, c.SegmentCount())
}
