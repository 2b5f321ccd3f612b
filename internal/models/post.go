package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a single uploaded photo plus its caption, hashtags, likes,
// and comments. Username is the owner's display name denormalized at upload
// time for fast listing; MediaKey is the opaque deletion handle returned by
// the media store.
type Post struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	UserID     uint     `gorm:"not null;index" json:"user_id"`
	Username   string   `gorm:"not null" json:"username"`
	MediaURL   string   `gorm:"not null" json:"media_url"`
	MediaKey   string   `gorm:"not null" json:"-"`
	PreviewURL string   `json:"preview_url,omitempty"`
	PreviewKey string   `json:"-"`
	Caption    string   `json:"caption"`
	Hashtags   []string `gorm:"serializer:json" json:"hashtags"`

	// LikesCount is not persisted; computed at query time from the likes table
	// so it always equals the size of the liker set.
	LikesCount int `gorm:"-" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"-" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked bool `gorm:"-" json:"liked"`

	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Comments  []Comment      `gorm:"foreignKey:PostID" json:"comments,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
