package models

import "time"

// Comment represents a reply to a pan. The author fields are a snapshot taken
// when the comment was written.
type Comment struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	AuthorID     string    `json:"user_id"`
	AuthorName   string    `json:"name"`
	AuthorAvatar string    `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
}
