package segment

import (
	"context"
	"encoding/binary"
	"io"

	"argusdb/internal/block"
	"argusdb/internal/common"
)

// summaryParts is the parsed, still-separated content of a `.summary`
// file, used internally by ReadHeader/ReadFilter/ReadIndex so each can
// skip straight to the section it needs (§4.4 "Segment readers are three
// accessors").
type summaryParts struct {
	header []byte
	filter []byte
	index  []byte
}

func readSummary(ctx context.Context, backend block.Backend, summaryPath string, want int) (summaryParts, error) {
	r, err := backend.Open(ctx, summaryPath)
	if err != nil {
		if block.IsNotFound(err) {
			return summaryParts{}, common.NotFoundf("segment summary missing: %s", summaryPath)
		}
		return summaryParts{}, common.Wrap(common.ErrIO, "open segment summary", err)
	}
	defer r.Close()

	var parts summaryParts
	header, err := readLenPrefixedSection(r)
	if err != nil {
		return summaryParts{}, err
	}
	parts.header = header
	if want < 2 {
		return parts, nil
	}

	filter, err := readLenPrefixedSection(r)
	if err != nil {
		return summaryParts{}, err
	}
	parts.filter = filter
	if want < 3 {
		return parts, nil
	}

	index, err := readLenPrefixedSection(r)
	if err != nil {
		return summaryParts{}, err
	}
	parts.index = index
	return parts, nil
}

func readLenPrefixedSection(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, common.Wrap(common.ErrDecode, "read section length", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, common.Wrap(common.ErrDecode, "read section payload", err)
	}
	return buf, nil
}

// ReadHeader reads only the header section of a segment's `.summary`
// file.
func ReadHeader(ctx context.Context, backend block.Backend, basePath string) (Header, error) {
	summaryPath, _ := Paths(basePath)
	parts, err := readSummary(ctx, backend, summaryPath, 1)
	if err != nil {
		return Header{}, err
	}
	return decodeHeader(parts.header)
}

// ReadFilter reads the header and filter sections, skipping the header
// bytes without decoding them.
func ReadFilter(ctx context.Context, backend block.Backend, basePath string) (*Filter, error) {
	summaryPath, _ := Paths(basePath)
	parts, err := readSummary(ctx, backend, summaryPath, 2)
	if err != nil {
		return nil, err
	}
	return deserializeFilter(parts.filter)
}

// ReadIndex reads the header, filter, and index sections, skipping the
// first two without decoding them.
func ReadIndex(ctx context.Context, backend block.Backend, basePath string) ([]IndexEntry, error) {
	summaryPath, _ := Paths(basePath)
	parts, err := readSummary(ctx, backend, summaryPath, 3)
	if err != nil {
		return nil, err
	}
	return decodeIndex(parts.index)
}

// Exists reports whether a segment's `.summary` file is present; the
// collection loader treats a missing summary as "segment does not exist"
// (§4.4 "Failure model").
func Exists(ctx context.Context, backend block.Backend, basePath string) (bool, error) {
	summaryPath, _ := Paths(basePath)
	return block.Exists(ctx, backend, summaryPath)
}

// Remove deletes both files of a segment, used by compaction to unlink
// superseded generations (§4.6 "compact").
func Remove(ctx context.Context, backend block.Backend, basePath string) error {
	summaryPath, dataPath := Paths(basePath)
	if err := backend.Remove(ctx, summaryPath); err != nil {
		return common.Wrap(common.ErrIO, "remove segment summary", err)
	}
	if err := backend.Remove(ctx, dataPath); err != nil {
		return common.Wrap(common.ErrIO, "remove segment data", err)
	}
	return nil
}
