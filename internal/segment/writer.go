package segment

import (
	"context"
	"encoding/binary"

	"argusdb/internal/block"
	"argusdb/internal/common"
	"argusdb/internal/jsonb"
	"argusdb/internal/memtable"
	"argusdb/internal/schema"
)

// Paths returns the `.summary` and `.data` file paths for a segment base
// path such as `jstable-0` (§6).
func Paths(base string) (summary string, data string) {
	return base + ".summary", base + ".data"
}

// WriteOptions configures a segment write.
type WriteOptions struct {
	Timestamp         int64
	Collection        string
	IndexThreshold    uint64
	FalsePositiveRate float64
}

// Write produces a new segment at basePath from records, which must
// already be ordered ascending by Id (§4.3 "flush ... orders its entries
// by Id", §4.4 writer steps 1-4).
func Write(ctx context.Context, backend block.Backend, basePath string, records []memtable.Record, summary *schema.Summary, opts WriteOptions) error {
	summaryPath, dataPath := Paths(basePath)

	header := Header{Timestamp: opts.Timestamp, Collection: opts.Collection, Schema: summary}
	headerBytes := header.encode()

	filter := NewFilter(len(records), opts.FalsePositiveRate)
	for _, r := range records {
		filter.Add(r.ID)
	}
	filterBytes, err := filter.serialize()
	if err != nil {
		return err
	}

	dataWriter, err := backend.Create(ctx, dataPath)
	if err != nil {
		return common.Wrap(common.ErrIO, "create segment data file", err)
	}
	defer dataWriter.Close()

	var index []IndexEntry
	var currentOffset uint64
	var bytesSinceIndex uint64
	for i, r := range records {
		raw := jsonb.EncodePair(r.ID, r.Value)
		recLen := uint32(len(raw))

		if i == 0 || bytesSinceIndex >= opts.IndexThreshold {
			index = append(index, IndexEntry{ID: r.ID, Offset: currentOffset})
			bytesSinceIndex = 0
		}

		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], recLen)
		if _, err := dataWriter.Write(lenBuf[:]); err != nil {
			return common.Wrap(common.ErrIO, "write record length", err)
		}
		if _, err := dataWriter.Write(raw); err != nil {
			return common.Wrap(common.ErrIO, "write record", err)
		}

		written := uint64(4 + len(raw))
		currentOffset += written
		bytesSinceIndex += written
	}
	if err := dataWriter.Close(); err != nil {
		return common.Wrap(common.ErrIO, "close segment data file", err)
	}

	indexBytes := encodeIndex(index)

	summaryWriter, err := backend.Create(ctx, summaryPath)
	if err != nil {
		return common.Wrap(common.ErrIO, "create segment summary file", err)
	}
	defer summaryWriter.Close()

	if err := writeLenPrefixed(summaryWriter, headerBytes); err != nil {
		return err
	}
	if err := writeLenPrefixed(summaryWriter, filterBytes); err != nil {
		return err
	}
	if err := writeLenPrefixed(summaryWriter, indexBytes); err != nil {
		return err
	}
	if err := summaryWriter.Close(); err != nil {
		return common.Wrap(common.ErrIO, "close segment summary file", err)
	}
	return nil
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

func writeLenPrefixed(w byteWriter, data []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return common.Wrap(common.ErrIO, "write length prefix", err)
	}
	if _, err := w.Write(data); err != nil {
		return common.Wrap(common.ErrIO, "write payload", err)
	}
	return nil
}
