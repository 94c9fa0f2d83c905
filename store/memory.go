package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/pans/models"
)

// MemoryStore keeps pans in process memory. Snapshots are deep-copied on the
// way in and out, so callers never alias stored state.
type MemoryStore struct {
	mu   sync.RWMutex
	pans map[string]*models.Pan
}

// NewMemoryStore returns an empty in-memory pan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pans: make(map[string]*models.Pan)}
}

func (s *MemoryStore) Create(ctx context.Context, pan *models.Pan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec := pan.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Version = 0

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pans[rec.ID]; exists {
		return "", wrapStorage("create", errDuplicateID)
	}
	s.pans[rec.ID] = rec

	pan.ID = rec.ID
	pan.CreatedAt = rec.CreatedAt
	pan.UpdatedAt = rec.UpdatedAt
	pan.Version = 0
	return rec.ID, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Pan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.pans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]models.Pan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.Pan, 0, len(s.pans))
	for _, rec := range s.pans {
		out = append(out, *rec.Clone())
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, next *models.Pan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.pans[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Version != expectedVersion {
		return ErrVersionConflict
	}
	updated := rec.Clone()
	updated.Likes = next.Clone().Likes
	updated.Comments = next.Clone().Comments
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = time.Now().UTC()
	s.pans[id] = updated

	next.Version = updated.Version
	next.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pans[id]; !ok {
		return ErrNotFound
	}
	delete(s.pans, id)
	return nil
}
