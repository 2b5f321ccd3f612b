// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a PicPal account. Password is empty for accounts created
// through a federated identity provider; GoogleID is empty for local accounts.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"unique;not null" json:"username"`
	Password   string         `gorm:"" json:"-"`
	GoogleID   string         `gorm:"uniqueIndex:idx_users_google_id,where:google_id <> ''" json:"-"`
	Bio        string         `json:"bio"`
	ProfilePic string         `json:"profile_pic"`
	Private    bool           `gorm:"default:false" json:"private"`
	Theme      string         `gorm:"default:'light'" json:"theme"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// FollowersCount and FollowingCount are computed at query time.
	FollowersCount int `gorm:"-" json:"followers_count"`
	FollowingCount int `gorm:"-" json:"following_count"`

	Posts []Post `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// Follow represents one edge of the social graph: FollowerID follows FolloweeID.
// The pair is unique.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follower_followee" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follower_followee" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followee User `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
