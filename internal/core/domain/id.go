package domain

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// NewBookID returns a fresh book identifier. IDs are ULIDs, so they sort
// by creation time and are unique within the process even when created
// in the same millisecond.
func NewBookID() string {
	return ulid.Make().String()
}

// ValidateBookID returns ErrInvalidID unless id is a well-formed ULID.
func ValidateBookID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
