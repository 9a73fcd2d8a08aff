package model

import (
	"time"

	"gorm.io/gorm"
)

// Comment belongs to exactly one post and optionally to one parent comment
// on the same post.
type Comment struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Content string `json:"content" gorm:"type:text;not null"`

	PostID uint  `json:"post_id" gorm:"not null;index"`
	Post   *Post `json:"-" gorm:"foreignKey:PostID"`

	AuthorID *uint `json:"author_id,omitempty" gorm:"index"`
	Author   *User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`

	ParentID *uint    `json:"parent_id,omitempty" gorm:"index"`
	Parent   *Comment `json:"-" gorm:"foreignKey:ParentID"`

	IsApproved bool `json:"is_approved" gorm:"default:true;index"`
	IsPinned   bool `json:"is_pinned" gorm:"default:false"`

	LikesCount    int `json:"likes_count" gorm:"default:0"`
	DislikesCount int `json:"dislikes_count" gorm:"default:0"`

	IPAddress string `json:"-" gorm:"size:45"`
	UserAgent string `json:"-" gorm:"size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// CommentVote holds one like/dislike per (voter, comment). Vote is +1 or -1.
type CommentVote struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CommentID uint      `json:"comment_id" gorm:"not null;uniqueIndex:idx_comment_voter"`
	VoterKey  string    `json:"-" gorm:"size:64;not null;uniqueIndex:idx_comment_voter"`
	UserID    *uint     `json:"user_id,omitempty"`
	IPAddress string    `json:"-" gorm:"size:45"`
	Vote      int       `json:"vote" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
