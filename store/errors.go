package store

import (
	"errors"
	"fmt"
)

var errDuplicateID = errors.New("duplicate pan id")

// wrapStorage tags a backend error as a storage failure while keeping the
// cause inspectable.
func wrapStorage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
