package models

import "time"

// Comment represents a comment on a post. Comments are append-only: there is
// no update or delete operation, so no soft-delete column either. Username is
// the commenter's display name denormalized at creation time.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Username  string    `gorm:"not null" json:"username"`
	Text      string    `gorm:"not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
