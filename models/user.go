package models

import "time"

// User is the read side of a member profile. Profiles are written by the
// account service; this service only reads name and avatar to snapshot them
// onto new pans and comments.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Email     string    `gorm:"size:255" json:"-"`
	Avatar    string    `gorm:"size:512" json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
