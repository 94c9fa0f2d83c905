// Package services orchestrates the pan store, the engagement engine and the
// ownership guard into the operations exposed over HTTP.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/cppla/pans/engagement"
	"github.com/cppla/pans/models"
	"github.com/cppla/pans/store"
	"github.com/cppla/pans/utils"
)

const (
	// DefaultMaxAttempts bounds compare-and-swap attempts per mutation.
	DefaultMaxAttempts = 5
	defaultBackoff     = 5 * time.Millisecond
)

// PanService implements create/list/get/delete, like/unlike and comment
// add/remove on pans. Each mutation reads a snapshot, applies a pure
// transition and writes it back with CompareAndSwap, retrying on conflict.
type PanService struct {
	store       store.PanStore
	users       store.UserDirectory
	cache       store.PanCache
	engine      *engagement.Engine
	log         *zap.Logger
	maxAttempts int
	backoff     time.Duration
	stripMarkup func(string) string
}

// Option customises a PanService.
type Option func(*PanService)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(s *PanService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay between conflicting attempts. Zero disables waiting.
func WithBackoff(d time.Duration) Option {
	return func(s *PanService) { s.backoff = d }
}

// WithEngine injects an engine, typically one with a fixed clock.
func WithEngine(e *engagement.Engine) Option {
	return func(s *PanService) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithMarkupStripper replaces the function that decides whether text has
// anything visible left once markup is removed.
func WithMarkupStripper(fn func(string) string) Option {
	return func(s *PanService) {
		if fn != nil {
			s.stripMarkup = fn
		}
	}
}

// NewPanService wires a service. A nil cache disables caching; a nil logger logs nothing.
func NewPanService(st store.PanStore, users store.UserDirectory, cache store.PanCache, log *zap.Logger, opts ...Option) *PanService {
	if cache == nil {
		cache = store.NopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &PanService{
		store:       st,
		users:       users,
		cache:       cache,
		engine:      engagement.NewEngine(),
		log:         log,
		maxAttempts: DefaultMaxAttempts,
		backoff:     defaultBackoff,
		stripMarkup: utils.StripMarkup,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePan stores a new pan written by actorID, snapshotting the author's
// current name and avatar.
func (s *PanService) CreatePan(ctx context.Context, actorID, text string) (*models.Pan, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	author, err := s.author(ctx, actorID)
	if err != nil {
		return nil, err
	}

	pan := &models.Pan{
		Text:         text,
		AuthorID:     author.ID,
		AuthorName:   author.Name,
		AuthorAvatar: author.Avatar,
		Likes:        datatypes.JSONSlice[models.Like]{},
		Comments:     datatypes.JSONSlice[models.Comment]{},
		CreatedAt:    s.engine.CurrentTime(),
	}
	if _, err := s.store.Create(ctx, pan); err != nil {
		return nil, s.storeErr("create", "", err)
	}
	s.cache.Invalidate(ctx, pan.ID)
	s.log.Info("pan created", zap.String("pan_id", pan.ID), zap.String("user_id", actorID))
	return pan, nil
}

// ListPans returns all pans, newest first.
func (s *PanService) ListPans(ctx context.Context) ([]models.Pan, error) {
	if pans, ok := s.cache.Pans(ctx); ok {
		return pans, nil
	}
	gen := s.cache.PansGeneration(ctx)
	pans, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.storeErr("list", "", err)
	}
	s.cache.SetPans(ctx, pans, gen)
	return pans, nil
}

// GetPan returns the current snapshot of a pan.
func (s *PanService) GetPan(ctx context.Context, panID string) (*models.Pan, error) {
	if pan, ok := s.cache.Pan(ctx, panID); ok {
		return pan, nil
	}
	// taken before the read so a concurrent mutation voids the fill
	gen := s.cache.PanGeneration(ctx, panID)
	pan, err := s.store.GetByID(ctx, panID)
	if err != nil {
		return nil, s.storeErr("get", panID, err)
	}
	s.cache.SetPan(ctx, pan, gen)
	return pan, nil
}

// DeletePan hard-deletes a pan with its likes and comments. Only the author may.
func (s *PanService) DeletePan(ctx context.Context, actorID, panID string) error {
	pan, err := s.store.GetByID(ctx, panID)
	if err != nil {
		return s.storeErr("delete", panID, err)
	}
	if !engagement.CanDeletePan(pan, actorID) {
		return ErrUnauthorized
	}
	if err := s.store.Delete(ctx, panID); err != nil {
		return s.storeErr("delete", panID, err)
	}
	s.cache.Invalidate(ctx, panID)
	s.log.Info("pan removed", zap.String("pan_id", panID), zap.String("user_id", actorID))
	return nil
}

// Like records actorID's like and returns the resulting likes.
func (s *PanService) Like(ctx context.Context, actorID, panID string) ([]models.Like, error) {
	pan, err := s.mutate(ctx, "like", panID, func(p *models.Pan) (*models.Pan, error) {
		return s.engine.ApplyLike(p, actorID)
	})
	if err != nil {
		return nil, err
	}
	return pan.Likes, nil
}

// Unlike removes actorID's like and returns the resulting likes.
func (s *PanService) Unlike(ctx context.Context, actorID, panID string) ([]models.Like, error) {
	pan, err := s.mutate(ctx, "unlike", panID, func(p *models.Pan) (*models.Pan, error) {
		return s.engine.ApplyUnlike(p, actorID)
	})
	if err != nil {
		return nil, err
	}
	return pan.Likes, nil
}

// AddComment prepends a comment by actorID and returns the resulting comments.
func (s *PanService) AddComment(ctx context.Context, actorID, panID, text string) ([]models.Comment, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}
	author, err := s.author(ctx, actorID)
	if err != nil {
		return nil, err
	}
	pan, err := s.mutate(ctx, "comment", panID, func(p *models.Pan) (*models.Pan, error) {
		next, _, err := s.engine.AddComment(p, author, text)
		return next, err
	})
	if err != nil {
		return nil, err
	}
	return pan.Comments, nil
}

// DeleteComment removes the comment commentID, provided actorID wrote it, and
// returns the remaining comments.
func (s *PanService) DeleteComment(ctx context.Context, actorID, panID, commentID string) ([]models.Comment, error) {
	pan, err := s.mutate(ctx, "uncomment", panID, func(p *models.Pan) (*models.Pan, error) {
		return s.engine.RemoveComment(p, actorID, commentID)
	})
	if err != nil {
		return nil, err
	}
	return pan.Comments, nil
}

func (s *PanService) mutate(ctx context.Context, op, panID string, apply func(*models.Pan) (*models.Pan, error)) (*models.Pan, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.store.GetByID(ctx, panID)
		if err != nil {
			return nil, s.storeErr(op, panID, err)
		}
		next, err := apply(current)
		if err != nil {
			return nil, err
		}

		err = s.store.CompareAndSwap(ctx, panID, current.Version, next)
		if err == nil {
			s.cache.Invalidate(ctx, panID)
			return next, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, s.storeErr(op, panID, err)
		}
		s.log.Debug("pan version conflict",
			zap.String("op", op),
			zap.String("pan_id", panID),
			zap.Int64("version", current.Version),
			zap.Int("attempt", attempt))
		if attempt < s.maxAttempts {
			if err := s.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}
	s.log.Warn("pan update gave up after conflicts",
		zap.String("op", op),
		zap.String("pan_id", panID),
		zap.Int("attempts", s.maxAttempts))
	return nil, ErrContention
}

// wait sleeps a jittered, linearly growing delay or until ctx is done.
func (s *PanService) wait(ctx context.Context, attempt int) error {
	if s.backoff <= 0 {
		return ctx.Err()
	}
	d := s.backoff*time.Duration(attempt) + time.Duration(rand.Int63n(int64(s.backoff)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// validateText rejects text that is blank or markup only. The text itself is
// stored verbatim.
func (s *PanService) validateText(text string) error {
	return engagement.ValidateText(s.stripMarkup(text))
}

func (s *PanService) author(ctx context.Context, actorID string) (engagement.Author, error) {
	u, err := s.users.Profile(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return engagement.Author{}, fmt.Errorf("%w: no profile for user %s", ErrUnauthorized, actorID)
		}
		return engagement.Author{}, s.storeErr("profile", "", err)
	}
	return engagement.Author{ID: actorID, Name: u.Name, Avatar: u.Avatar}, nil
}

// storeErr logs storage failures and passes every error through unchanged.
func (s *PanService) storeErr(op, panID string, err error) error {
	if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, context.Canceled) {
		s.log.Error("pan store failure",
			zap.String("op", op),
			zap.String("pan_id", panID),
			zap.Error(err))
	}
	return err
}
