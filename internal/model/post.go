package model

import (
	"time"

	"gorm.io/gorm"
)

// Post is the main content entity.
type Post struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Title        string `json:"title" gorm:"size:255;not null;index"`
	Slug         string `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	ShortContent string `json:"short_content,omitempty" gorm:"type:text"`
	FullContent  string `json:"full_content" gorm:"type:text;not null"`
	Thumbnail    string `json:"thumbnail,omitempty" gorm:"size:255"`

	AuthorID uint  `json:"author_id" gorm:"not null;index"`
	Author   *User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`

	IsPublished   bool       `json:"is_published" gorm:"default:false;index"`
	IsFeatured    bool       `json:"is_featured" gorm:"default:false;index"`
	IsPinned      bool       `json:"is_pinned" gorm:"default:false"`
	AllowComments bool       `json:"allow_comments" gorm:"default:true"`
	PublishDate   *time.Time `json:"publish_date,omitempty"`

	MetaTitle       string `json:"meta_title,omitempty" gorm:"size:255"`
	MetaDescription string `json:"meta_description,omitempty" gorm:"type:text"`
	MetaKeywords    string `json:"meta_keywords,omitempty" gorm:"size:255"`

	ViewsCount     int `json:"views_count" gorm:"default:0"`
	CommentsCount  int `json:"comments_count" gorm:"default:0"`
	FavoritesCount int `json:"favorites_count" gorm:"default:0"`

	// Rating is the running average of all stored ratings; VotesCount is
	// the number of rating rows backing it.
	Rating     float64 `json:"rating" gorm:"default:0"`
	VotesCount int     `json:"votes_count" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Categories []Category `json:"categories,omitempty" gorm:"many2many:post_categories"`
	Tags       []Tag      `json:"tags,omitempty" gorm:"many2many:post_tags"`
}

// Tag labels posts, many-to-many.
type Tag struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"uniqueIndex;size:50;not null"`
	Slug       string `json:"slug" gorm:"uniqueIndex;size:50;not null"`
	PostsCount int    `json:"posts_count" gorm:"default:0"`

	Posts []Post `json:"-" gorm:"many2many:post_tags"`
}

// PostView records one counted view for analytics. The views counter on the
// post is bumped in the same transaction that inserts this row.
type PostView struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"not null;index"`
	UserID    *uint     `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address" gorm:"size:45"`
	UserAgent string    `json:"user_agent,omitempty" gorm:"size:255"`
	Referer   string    `json:"referer,omitempty" gorm:"size:255"`
	ViewedAt  time.Time `json:"viewed_at" gorm:"autoCreateTime"`
}

// PostRating holds one rating per (voter, post). VoterKey is "user:<id>" for
// authenticated voters and "ip:<addr>" otherwise; the composite unique index
// makes repeat votes an upsert rather than a duplicate.
type PostRating struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"not null;uniqueIndex:idx_post_voter"`
	VoterKey  string    `json:"-" gorm:"size:64;not null;uniqueIndex:idx_post_voter"`
	UserID    *uint     `json:"user_id,omitempty"`
	IPAddress string    `json:"-" gorm:"size:45"`
	Rating    int       `json:"rating" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Favorite is a unique (user, post) bookmark.
type Favorite struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_post"`
	PostID    uint      `json:"post_id" gorm:"not null;uniqueIndex:idx_user_post"`
	CreatedAt time.Time `json:"created_at"`
}
