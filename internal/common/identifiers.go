package common

import (
	"github.com/google/uuid"
)

// ID is a time-ordered 128-bit document identifier (§3 "Identifier (Id)").
// It is backed by a UUIDv7 so that IDs generated by a single process are
// monotonically increasing, which scans rely on for insertion-order
// iteration.
type ID struct {
	uuid uuid.UUID
}

// NewID generates a fresh, monotonically-increasing (within this process)
// identifier.
func NewID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the process's entropy source is broken;
		// fall back to a random v4 rather than panic a write path.
		u = uuid.New()
	}
	return ID{uuid: u}
}

// ParseID parses the canonical string form produced by String.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, Wrap(ErrDecode, "parse id", err)
	}
	return ID{uuid: u}, nil
}

// String returns the canonical hyphenated representation.
func (id ID) String() string {
	return id.uuid.String()
}

// Less reports whether id sorts before other by the spec's Id ordering,
// which is simply the string's natural (and, for UUIDv7, also temporal)
// ordering.
func (id ID) Less(other ID) bool {
	return id.String() < other.String()
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.uuid == uuid.Nil
}
