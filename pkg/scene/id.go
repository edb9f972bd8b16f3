// Package scene defines the object handles, geometry, and host contract the pool engine drives.
package scene

import (
	"fmt"

	"github.com/google/uuid"
)

// ID identifies a template or instance owned by a Host. Two handles refer to the same object
// only when they are equal.
type ID uuid.UUID

// NilID is the invalid handle.
var NilID ID

// NewID returns a fresh random handle.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID decodes the canonical textual form of a handle.
func ParseID(raw string) (ID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return NilID, fmt.Errorf("parse scene id %q: %w", raw, err)
	}
	return ID(parsed), nil
}

// IsNil reports whether the handle is NilID.
func (id ID) IsNil() bool {
	return id == NilID
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the handle in canonical form.
func (id ID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes a canonical handle.
func (id *ID) UnmarshalText(data []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(data); err != nil {
		return err
	}
	*id = ID(u)
	return nil
}
