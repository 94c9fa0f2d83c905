package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cppla/pans/models"
)

// GormStore keeps one row per pan with likes and comments as JSON columns.
// CompareAndSwap is a single conditional UPDATE on (id, version).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialised gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, pan *models.Pan) (string, error) {
	rec := pan.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Version = 0
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", wrapStorage("create", err)
	}
	pan.ID = rec.ID
	pan.CreatedAt = rec.CreatedAt
	pan.UpdatedAt = rec.UpdatedAt
	pan.Version = 0
	return rec.ID, nil
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*models.Pan, error) {
	var pan models.Pan
	if err := s.db.WithContext(ctx).First(&pan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapStorage("get", err)
	}
	return &pan, nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]models.Pan, error) {
	var pans []models.Pan
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&pans).Error; err != nil {
		return nil, wrapStorage("list", err)
	}
	if pans == nil {
		pans = []models.Pan{}
	}
	return pans, nil
}

func (s *GormStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, next *models.Pan) error {
	now := time.Now().UTC()
	rec := next.Clone()
	res := s.db.WithContext(ctx).Model(&models.Pan{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"likes":      rec.Likes,
			"comments":   rec.Comments,
			"version":    expectedVersion + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return wrapStorage("compare-and-swap", res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Pan{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return wrapStorage("compare-and-swap probe", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	next.Version = expectedVersion + 1
	next.UpdatedAt = now
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Pan{})
	if res.Error != nil {
		return wrapStorage("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormUserDirectory reads author profiles from the users table.
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory wraps an initialised gorm handle.
func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) Profile(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	if err := d.db.WithContext(ctx).Select("id", "name", "avatar").First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, wrapStorage("profile", err)
	}
	return u, nil
}

// StaticUserDirectory serves profiles from a fixed map, for tests and for
// callers embedding a MemoryStore.
type StaticUserDirectory map[string]models.User

func (d StaticUserDirectory) Profile(ctx context.Context, userID string) (models.User, error) {
	u, ok := d[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}
