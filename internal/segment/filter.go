package segment

import (
	"bytes"

	"argusdb/internal/common"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/zeebo/xxh3"
)

// defaultFalsePositiveRate is the configured small false-positive rate for
// a segment's membership filter (§4.4, §8 "Filter property").
const defaultFalsePositiveRate = 0.01

// Filter is a segment's approximate membership structure: one-sided (no
// false negatives), built once over the exact key set at write time.
type Filter struct {
	bits *bloom.BloomFilter
}

// NewFilter builds a Filter sized for n expected keys at the given
// false-positive rate.
func NewFilter(n int, falsePositiveRate float64) *Filter {
	if n < 1 {
		n = 1
	}
	if falsePositiveRate <= 0 {
		falsePositiveRate = defaultFalsePositiveRate
	}
	return &Filter{bits: bloom.NewWithEstimates(uint(n), falsePositiveRate)}
}

// Add records id as present.
func (f *Filter) Add(id string) {
	f.bits.Add(hashKey(id))
}

// MaybeContains reports whether id is possibly present; false means
// definitely absent.
func (f *Filter) MaybeContains(id string) bool {
	return f.bits.Test(hashKey(id))
}

func hashKey(id string) []byte {
	sum := xxh3.HashString(id)
	return []byte{
		byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24),
		byte(sum >> 32), byte(sum >> 40), byte(sum >> 48), byte(sum >> 56),
	}
}

// serialize renders the filter to bytes for embedding in a `.summary`
// file.
func (f *Filter) serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.bits.WriteTo(&buf); err != nil {
		return nil, common.Wrap(common.ErrIO, "serialize filter", err)
	}
	return buf.Bytes(), nil
}

// deserializeFilter parses a Filter out of the bytes serialize produced.
func deserializeFilter(raw []byte) (*Filter, error) {
	bits := &bloom.BloomFilter{}
	if _, err := bits.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, common.Wrap(common.ErrDecode, "deserialize filter", err)
	}
	return &Filter{bits: bits}, nil
}
