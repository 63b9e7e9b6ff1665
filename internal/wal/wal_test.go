package wal

import (
	"os"
	"path/filepath"
	"testing"

	"argusdb/internal/jsonb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() int64 {
	return func() int64 { return ms }
}

func TestLoggerAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "argus.log")
	logger, err := NewLogger(Config{Path: path, RotationThreshold: 1024 * 1024, Now: fixedClock(100)})
	require.NoError(t, err)

	doc, _ := jsonb.FromJSON([]byte(`{"a":1}`))
	require.NoError(t, logger.Append(Insert("id-1", doc)))
	require.NoError(t, logger.Append(Update("id-1", jsonb.Null())))
	require.NoError(t, logger.Append(Delete("id-2")))
	require.NoError(t, logger.Close())

	var ops []Operation
	require.NoError(t, Replay(path, func(op Operation) { ops = append(ops, op) }))
	require.Len(t, ops, 3)
	assert.Equal(t, OpInsert, ops[0].Type)
	assert.Equal(t, "id-1", ops[0].ID)
	v, ok := ops[0].Doc.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), v.Int64())

	assert.Equal(t, OpUpdate, ops[1].Type)
	assert.True(t, ops[1].Doc.IsNull())

	assert.Equal(t, OpDelete, ops[2].Type)
	assert.Equal(t, "id-2", ops[2].ID)
}

func TestLoggerAppendAndReplayPreservesFieldOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "argus.log")
	logger, err := NewLogger(Config{Path: path, RotationThreshold: 1024 * 1024, Now: fixedClock(100)})
	require.NoError(t, err)

	doc, err := jsonb.FromJSON([]byte(`{"z":1,"a":2,"m":3}`))
	require.NoError(t, err)
	require.NoError(t, logger.Append(Insert("id-1", doc)))
	require.NoError(t, logger.Close())

	var ops []Operation
	require.NoError(t, Replay(path, func(op Operation) { ops = append(ops, op) }))
	require.Len(t, ops, 1)

	fields := ops[0].Doc.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{fields[0].Key, fields[1].Key, fields[2].Key})
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "argus.log")
	logger, err := NewLogger(Config{Path: path, RotationThreshold: 1024 * 1024, Now: fixedClock(1)})
	require.NoError(t, err)

	doc, _ := jsonb.FromJSON([]byte(`{"a":1}`))
	require.NoError(t, logger.Append(Insert("id-1", doc)))
	require.NoError(t, logger.Rotate())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, content)

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.NotEmpty(t, rotated)
}

func TestLoggerAutoRotatesOnThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")
	logger, err := NewLogger(Config{Path: path, RotationThreshold: 10, Now: fixedClock(1)})
	require.NoError(t, err)

	doc, _ := jsonb.FromJSON([]byte(`{"a":1}`))
	for i := 0; i < 6; i++ {
		require.NoError(t, logger.Append(Insert("id", doc)))
	}
	require.NoError(t, logger.Close())

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "auto-rotated log file should exist")

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, current)
}

func TestReplaySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "argus.log")
	require.NoError(t, os.WriteFile(path, []byte("not json\n{\"ts\":1,\"op\":{\"type\":\"delete\",\"id\":\"x\"}}\n"), 0o644))

	var ops []Operation
	require.NoError(t, Replay(path, func(op Operation) { ops = append(ops, op) }))
	require.Len(t, ops, 1)
	assert.Equal(t, "x", ops[0].ID)
}

func TestReplayMissingFileIsNoop(t *testing.T) {
	err := Replay(filepath.Join(t.TempDir(), "missing.log"), func(Operation) { t.Fatal("should not be called") })
	assert.NoError(t, err)
}

func TestNullLog(t *testing.T) {
	var l Log = NullLog{}
	assert.NoError(t, l.Append(Insert("x", jsonb.Null())))
	assert.NoError(t, l.Rotate())
	assert.NoError(t, l.Close())
}
