package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pan is a short text post. Likes and comments live inline on the row, so a
// pan is read and written as a single document.
type Pan struct {
	ID           string                       `gorm:"primaryKey;size:36" json:"id"`
	Text         string                       `gorm:"type:text;not null" json:"text"`
	AuthorID     string                       `gorm:"size:64;index;not null" json:"user_id"`
	AuthorName   string                       `gorm:"size:128" json:"name"`
	AuthorAvatar string                       `gorm:"size:512" json:"avatar"`
	Likes        datatypes.JSONSlice[Like]    `json:"likes"`
	Comments     datatypes.JSONSlice[Comment] `json:"comments"`
	Version      int64                        `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time                    `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// AfterFind keeps empty collections serialised as [] rather than null.
func (p *Pan) AfterFind(tx *gorm.DB) error {
	p.normalize()
	return nil
}

func (p *Pan) normalize() {
	if p.Likes == nil {
		p.Likes = datatypes.JSONSlice[Like]{}
	}
	if p.Comments == nil {
		p.Comments = datatypes.JSONSlice[Comment]{}
	}
}

// Clone returns a deep copy so callers never share slices with a store.
func (p *Pan) Clone() *Pan {
	if p == nil {
		return nil
	}
	out := *p
	out.Likes = append(datatypes.JSONSlice[Like]{}, p.Likes...)
	out.Comments = append(datatypes.JSONSlice[Comment]{}, p.Comments...)
	return &out
}

// HasLikeFrom reports whether userID already liked the pan.
func (p *Pan) HasLikeFrom(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// FindComment returns the comment with the given id, or nil.
func (p *Pan) FindComment(commentID string) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return &p.Comments[i]
		}
	}
	return nil
}
