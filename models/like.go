package models

import "time"

// Like records a single user's endorsement of a pan. A pan holds at most one
// like per user.
type Like struct {
	UserID  string    `json:"user_id"`
	LikedAt time.Time `json:"liked_at"`
}
