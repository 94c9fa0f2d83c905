// Package engagement holds the pure like/unlike/comment transitions of a pan
// and the ownership checks that gate deletion. Nothing here performs I/O:
// every method takes a snapshot and returns a new one, leaving its input
// untouched, so callers can retry freely against a fresh read.
package engagement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/cppla/pans/models"
)

// maxIDAttempts bounds comment id regeneration on the (unlikely) collision path.
const maxIDAttempts = 8

// Author is the identity snapshot copied onto a new comment.
type Author struct {
	ID     string
	Name   string
	Avatar string
}

// Engine applies engagement transitions. The zero value is usable and falls
// back to the wall clock and random UUIDs.
type Engine struct {
	Now   func() time.Time
	NewID func() string
}

// NewEngine returns an Engine using the wall clock and UUIDv4 comment ids.
func NewEngine() *Engine {
	return &Engine{Now: time.Now, NewID: uuid.NewString}
}

// CurrentTime reads the engine clock in UTC.
func (e *Engine) CurrentTime() time.Time {
	if e != nil && e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) newID() string {
	if e != nil && e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// ValidateText rejects empty and whitespace-only text.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// ApplyLike prepends a like from actorID.
func (e *Engine) ApplyLike(pan *models.Pan, actorID string) (*models.Pan, error) {
	if pan.HasLikeFrom(actorID) {
		return nil, ErrAlreadyLiked
	}
	next := pan.Clone()
	at := e.CurrentTime()
	if len(next.Likes) > 0 && at.Before(next.Likes[0].LikedAt) {
		at = next.Likes[0].LikedAt
	}
	next.Likes = append(datatypes.JSONSlice[models.Like]{{UserID: actorID, LikedAt: at}}, next.Likes...)
	return next, nil
}

// ApplyUnlike removes the first like from actorID.
func (e *Engine) ApplyUnlike(pan *models.Pan, actorID string) (*models.Pan, error) {
	idx := -1
	for i, l := range pan.Likes {
		if l.UserID == actorID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotLiked
	}
	next := pan.Clone()
	next.Likes = append(next.Likes[:idx], next.Likes[idx+1:]...)
	return next, nil
}

// AddComment prepends a comment written by author and returns the new
// snapshot together with the comment that was added.
func (e *Engine) AddComment(pan *models.Pan, author Author, text string) (*models.Pan, *models.Comment, error) {
	if err := ValidateText(text); err != nil {
		return nil, nil, err
	}
	id := e.newID()
	for i := 1; pan.FindComment(id) != nil && i < maxIDAttempts; i++ {
		id = e.newID()
	}
	if pan.FindComment(id) != nil {
		id = uuid.NewString()
	}

	at := e.CurrentTime()
	if len(pan.Comments) > 0 && at.Before(pan.Comments[0].CreatedAt) {
		at = pan.Comments[0].CreatedAt
	}
	comment := models.Comment{
		ID:           id,
		Text:         text,
		AuthorID:     author.ID,
		AuthorName:   author.Name,
		AuthorAvatar: author.Avatar,
		CreatedAt:    at,
	}

	next := pan.Clone()
	next.Comments = append(datatypes.JSONSlice[models.Comment]{comment}, next.Comments...)
	return next, &comment, nil
}

// RemoveComment deletes the comment whose id is commentID, provided actorID
// wrote it. Other comments by the same author are left alone.
func (e *Engine) RemoveComment(pan *models.Pan, actorID, commentID string) (*models.Pan, error) {
	idx := -1
	for i := range pan.Comments {
		if pan.Comments[i].ID == commentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrCommentNotFound
	}
	if !CanDeleteComment(&pan.Comments[idx], actorID) {
		return nil, ErrNotCommentOwner
	}
	next := pan.Clone()
	next.Comments = append(next.Comments[:idx], next.Comments[idx+1:]...)
	return next, nil
}
