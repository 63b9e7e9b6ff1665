// Package wal implements the collection write-ahead log: an append-only
// journal of operations, replayed into a memtable on recovery.
package wal

import (
	"bufio"
	"os"
	"sync"
	"time"

	"argusdb/internal/common"
	"argusdb/internal/jsonb"

	gojson "github.com/goccy/go-json"
)

// OpType discriminates a logged Operation.
type OpType string

const (
	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Operation is the unit written to the log and replayed into a memtable.
// Delete carries no document; Insert/Update carry the new value (Update's
// value may be jsonb.Null() to represent a tombstone — see collection).
type Operation struct {
	Type OpType
	ID   string
	Doc  jsonb.Value
}

func Insert(id string, doc jsonb.Value) Operation { return Operation{Type: OpInsert, ID: id, Doc: doc} }
func Update(id string, doc jsonb.Value) Operation { return Operation{Type: OpUpdate, ID: id, Doc: doc} }
func Delete(id string) Operation                  { return Operation{Type: OpDelete, ID: id} }

// LogEntry pairs a logged Operation with the millisecond timestamp it was
// recorded at (§6 "Log line format").
type LogEntry struct {
	TS int64
	Op Operation
}

type wireOp struct {
	Type string              `json:"type"`
	ID   string              `json:"id"`
	Doc  gojson.RawMessage `json:"doc,omitempty"`
}

type wireEntry struct {
	TS int64   `json:"ts"`
	Op wireOp `json:"op"`
}

func marshalEntry(e LogEntry) ([]byte, error) {
	w := wireEntry{TS: e.TS, Op: wireOp{Type: string(e.Op.Type), ID: e.Op.ID}}
	if e.Op.Type != OpDelete {
		docJSON, err := jsonb.ToJSON(e.Op.Doc)
		if err != nil {
			return nil, common.Wrap(common.ErrDecode, "encode log entry doc", err)
		}
		w.Op.Doc = docJSON
	}
	return gojson.Marshal(w)
}

func unmarshalEntry(line []byte) (LogEntry, error) {
	var w wireEntry
	if err := gojson.Unmarshal(line, &w); err != nil {
		return LogEntry{}, common.Wrap(common.ErrDecode, "parse log entry", err)
	}
	op := Operation{Type: OpType(w.Op.Type), ID: w.Op.ID}
	if op.Type != OpDelete {
		doc, err := jsonb.FromJSON(w.Op.Doc)
		if err != nil {
			return LogEntry{}, common.Wrap(common.ErrDecode, "parse log entry doc", err)
		}
		op.Doc = doc
	}
	return LogEntry{TS: w.TS, Op: op}, nil
}

// Log is the interface a collection's write path logs operations through.
// Logger is the durable implementation; NullLog is substituted when log
// rotation is unset (§4.2).
type Log interface {
	Append(op Operation) error
	Rotate() error
	Close() error
}

// Config configures a Logger.
type Config struct {
	Path              string
	RotationThreshold uint64
	// OnAppend, if set, is called after every successful Append with the
	// operation's type and id — a hook an embedder can wire to whatever
	// structured logging or tracing it already uses, since no tracing
	// library is a dependency of this module (see design notes).
	OnAppend func(opType, id string)
	// Now supplies the append timestamp in milliseconds since epoch.
	// Defaults to time.Now if nil; overridable for deterministic tests.
	Now func() int64
}

// Logger is the durable Log implementation: buffered append-only writes
// with size-based rotation to a ".1" sibling file.
type Logger struct {
	mu                sync.Mutex
	path              string
	file              *os.File
	writer            *bufio.Writer
	rotationThreshold uint64
	currentSize       uint64
	onAppend          func(opType, id string)
	now               func() int64
}

// NewLogger opens (creating if absent) the log file at cfg.Path for
// appending.
func NewLogger(cfg Config) (*Logger, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, common.Wrap(common.ErrIO, "open log file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, common.Wrap(common.ErrIO, "stat log file", err)
	}
	l := &Logger{
		path:              cfg.Path,
		file:              f,
		writer:            bufio.NewWriter(f),
		rotationThreshold: cfg.RotationThreshold,
		currentSize:       uint64(info.Size()),
		onAppend:          cfg.OnAppend,
		now:               cfg.Now,
	}
	if l.now == nil {
		l.now = defaultNow
	}
	return l, nil
}

// Append appends one serialized (timestamp, op) line and flushes before
// returning (§4.2). If the file size already exceeds the rotation
// threshold, it rotates first so the not-yet-written record lands in the
// fresh file.
func (l *Logger) Append(op Operation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotationThreshold > 0 && l.currentSize > l.rotationThreshold {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}

	entry := LogEntry{TS: l.now(), Op: op}
	line, err := marshalEntry(entry)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	n, err := l.writer.Write(line)
	if err != nil {
		return common.Wrap(common.ErrIO, "append log entry", err)
	}
	if err := l.writer.Flush(); err != nil {
		return common.Wrap(common.ErrIO, "flush log entry", err)
	}
	l.currentSize += uint64(n)

	if l.onAppend != nil {
		l.onAppend(string(op.Type), op.ID)
	}
	return nil
}

// Rotate renames the current log file to ".1" (replacing any previous
// rotated file) and reopens a fresh file for further appends.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotateLocked()
}

func (l *Logger) rotateLocked() error {
	if err := l.writer.Flush(); err != nil {
		return common.Wrap(common.ErrIO, "flush before rotate", err)
	}
	rotatedPath := l.path + ".1"
	if err := os.Rename(l.path, rotatedPath); err != nil {
		return common.Wrap(common.ErrIO, "rotate log file", err)
	}
	if err := l.file.Close(); err != nil {
		return common.Wrap(common.ErrIO, "close rotated log file", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return common.Wrap(common.ErrIO, "reopen log file after rotate", err)
	}
	l.file = f
	l.writer = bufio.NewWriter(f)
	l.currentSize = 0
	return nil
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return common.Wrap(common.ErrIO, "flush log on close", err)
	}
	if err := l.file.Close(); err != nil {
		return common.Wrap(common.ErrIO, "close log file", err)
	}
	return nil
}

// Replay reads the log at path line by line and invokes apply for each
// successfully decoded Operation, in file order (§5 recovery step 4).
// Malformed lines are skipped — replay is best-effort redo, not a strict
// parser.
func Replay(path string, apply func(Operation)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return common.Wrap(common.ErrIO, "open log for replay", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry, err := unmarshalEntry(line)
		if err != nil {
			continue
		}
		apply(entry.Op)
	}
	if err := scanner.Err(); err != nil {
		return common.Wrap(common.ErrIO, "scan log for replay", err)
	}
	return nil
}

// NullLog implements Log as a no-op, substituted when log rotation is
// unset (§4.2).
type NullLog struct{}

func (NullLog) Append(Operation) error { return nil }
func (NullLog) Rotate() error          { return nil }
func (NullLog) Close() error           { return nil }

var _ Log = (*Logger)(nil)
var _ Log = NullLog{}

func defaultNow() int64 {
	return time.Now().UnixMilli()
}
