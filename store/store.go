// Package store persists pans. Every mutation of an existing pan goes through
// CompareAndSwap, which succeeds only if nobody else wrote the pan since it
// was read.
package store

import (
	"context"
	"errors"

	"github.com/cppla/pans/models"
)

var (
	// ErrNotFound indicates the pan does not exist
	ErrNotFound = errors.New("pan not found")

	// ErrVersionConflict indicates the stored version moved on since the read
	ErrVersionConflict = errors.New("pan was modified by another operation")

	// ErrStorage wraps backend I/O failures
	ErrStorage = errors.New("pan storage failure")

	// ErrUserNotFound indicates no profile exists for the user id
	ErrUserNotFound = errors.New("user not found")
)

// PanStore is the durable keyed collection of pans.
type PanStore interface {
	// Create persists a new pan at version 0 and returns its id. An id is
	// generated when the pan has none.
	Create(ctx context.Context, pan *models.Pan) (string, error)
	GetByID(ctx context.Context, id string) (*models.Pan, error)
	// ListAll returns every pan, newest first.
	ListAll(ctx context.Context) ([]models.Pan, error)
	// CompareAndSwap replaces the likes and comments of pan id only when the
	// stored version equals expectedVersion. On success next.Version is set
	// to expectedVersion+1.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, next *models.Pan) error
	Delete(ctx context.Context, id string) error
}

// UserDirectory resolves profile snapshots for authors.
type UserDirectory interface {
	Profile(ctx context.Context, userID string) (models.User, error)
}
