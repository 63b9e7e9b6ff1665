package collection

import (
	"context"

	"argusdb/internal/block"
	"argusdb/internal/segment"
	"argusdb/internal/wal"
)

// Open reconstructs a Collection from its on-disk directory, following
// §5's recovery steps: recover the original collection name from
// generation 0's header if present, count contiguous generations, load
// each one's filter, then replay the log into a fresh memtable if log
// rotation is configured. fallbackName is used when no generation exists
// to recover a name from (typically the sanitized directory name).
func Open(ctx context.Context, backend block.Backend, dir string, logDir string, fallbackName string, opts Options) (*Collection, error) {
	name := fallbackName
	if header, err := readGenerationHeader(ctx, backend, dir, 0); err == nil {
		name = header.Collection
	}

	c, err := New(ctx, backend, dir, logDir, name, opts)
	if err != nil {
		return nil, err
	}

	for n := 0; ; n++ {
		basePath := segmentBasePath(dir, n)
		exists, err := segment.Exists(ctx, backend, basePath)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		filter, err := segment.ReadFilter(ctx, backend, basePath)
		if err != nil {
			return nil, err
		}
		c.gens = append(c.gens, generation{basePath: basePath, filter: filter})
	}

	if !opts.skipLogRotation() {
		logFilePath := logDir + "/" + logFileName
		if err := wal.Replay(logFilePath, func(op wal.Operation) {
			switch op.Type {
			case wal.OpInsert:
				c.mt.Insert(op.ID, op.Doc)
			case wal.OpUpdate:
				c.mt.Update(op.ID, op.Doc)
			case wal.OpDelete:
				c.mt.Delete(op.ID)
			}
		}); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func readGenerationHeader(ctx context.Context, backend block.Backend, dir string, n int) (segment.Header, error) {
	return segment.ReadHeader(ctx, backend, segmentBasePath(dir, n))
}
