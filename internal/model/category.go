package model

import "time"

// Category is a hierarchical content bucket. Parent links form a tree; the
// parent graph must stay acyclic, which the category service enforces on
// every move.
type Category struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	ParentID *uint     `json:"parent_id,omitempty" gorm:"index"`
	Parent   *Category `json:"-" gorm:"foreignKey:ParentID"`

	IsActive   bool `json:"is_active" gorm:"default:true;index"`
	ShowInMenu bool `json:"show_in_menu" gorm:"default:true"`
	// Position orders siblings; ties break on name so the tree projection
	// stays deterministic.
	Position int `json:"position" gorm:"default:0"`

	PostsCount int `json:"posts_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Posts []Post `json:"-" gorm:"many2many:post_categories"`
}
