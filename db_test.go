package argusdb

import (
	"context"
	"os"
	"testing"

	"argusdb/internal/block"
	"argusdb/internal/jsonb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOptions(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	backend, err := block.NewLocalBackend(root)
	require.NoError(t, err)
	return Options{Backend: backend, RootDir: root}
}

func TestSanitizeNameEscapesNonAlphanumeric(t *testing.T) {
	assert.Equal(t, "user_2fdata", sanitizeName("user/data"))
	assert.Equal(t, "plain", sanitizeName("plain"))
}

func TestCreateCollectionSanitizesDirectoryName(t *testing.T) {
	ctx := context.Background()
	opts := newTestOptions(t)
	db, err := Open(ctx, opts)
	require.NoError(t, err)

	_, err = db.CreateCollection(ctx, "user/data")
	require.NoError(t, err)

	entries, err := os.ReadDir(opts.RootDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "user_2fdata")
	assert.Contains(t, db.ShowCollections(), "user/data")
}

func TestCreateCollectionDuplicateIsAlreadyExists(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, newTestOptions(t))
	require.NoError(t, err)

	_, err = db.CreateCollection(ctx, "c")
	require.NoError(t, err)
	_, err = db.CreateCollection(ctx, "c")
	require.Error(t, err)
}

func TestDropCollectionRemovesItAndData(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, newTestOptions(t))
	require.NoError(t, err)

	c, err := db.CreateCollection(ctx, "c")
	require.NoError(t, err)
	_, err = c.Insert(ctx, jsonb.Object([]jsonb.Field{{Key: "a", Value: jsonb.Int64(1)}}))
	require.NoError(t, err)

	require.NoError(t, db.DropCollection(ctx, "c"))
	assert.NotContains(t, db.ShowCollections(), "c")

	_, err = db.CreateCollection(ctx, "c")
	require.NoError(t, err)
}

func TestDropCollectionMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, newTestOptions(t))
	require.NoError(t, err)

	err = db.DropCollection(ctx, "nope")
	require.Error(t, err)
}

func TestOpenRecoversExistingCollections(t *testing.T) {
	ctx := context.Background()
	opts := newTestOptions(t)

	db, err := Open(ctx, opts)
	require.NoError(t, err)
	c, err := db.CreateCollection(ctx, "user/data")
	require.NoError(t, err)
	_, err = c.Insert(ctx, jsonb.Object([]jsonb.Field{{Key: "a", Value: jsonb.Int64(1)}}))
	require.NoError(t, err)
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, db.Close())

	reopened, err := Open(ctx, opts)
	require.NoError(t, err)
	assert.Contains(t, reopened.ShowCollections(), "user/data")

	recovered, ok := reopened.Collection("user/data")
	require.True(t, ok)
	assert.Equal(t, 1, recovered.SegmentCount())
}
