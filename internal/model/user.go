package model

import (
	"time"

	"gorm.io/gorm"
)

// Capability names a single permission flag carried by a user group.
type Capability string

const (
	CapAddPosts       Capability = "add_posts"
	CapEditPosts      Capability = "edit_posts"
	CapDeletePosts    Capability = "delete_posts"
	CapAddComments    Capability = "add_comments"
	CapEditComments   Capability = "edit_comments"
	CapDeleteComments Capability = "delete_comments"
	CapUploadFiles    Capability = "upload_files"
	CapAccessAdmin    Capability = "access_admin"
)

// PermissionSet is the capability snapshot embedded in token claims and
// request identities.
type PermissionSet struct {
	CanAddPosts       bool `json:"can_add_posts"`
	CanEditPosts      bool `json:"can_edit_posts"`
	CanDeletePosts    bool `json:"can_delete_posts"`
	CanAddComments    bool `json:"can_add_comments"`
	CanEditComments   bool `json:"can_edit_comments"`
	CanDeleteComments bool `json:"can_delete_comments"`
	CanUploadFiles    bool `json:"can_upload_files"`
	CanAccessAdmin    bool `json:"can_access_admin"`
	IsAdmin           bool `json:"is_admin"`
}

// Has reports whether the set grants a capability. Admins pass every check.
func (p PermissionSet) Has(c Capability) bool {
	if p.IsAdmin {
		return true
	}
	switch c {
	case CapAddPosts:
		return p.CanAddPosts
	case CapEditPosts:
		return p.CanEditPosts
	case CapDeletePosts:
		return p.CanDeletePosts
	case CapAddComments:
		return p.CanAddComments
	case CapEditComments:
		return p.CanEditComments
	case CapDeleteComments:
		return p.CanDeleteComments
	case CapUploadFiles:
		return p.CanUploadFiles
	case CapAccessAdmin:
		return p.CanAccessAdmin
	default:
		return false
	}
}

// UserGroup is a named permission bundle assigned to users.
type UserGroup struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;size:100;not null"`

	CanAddPosts       bool `json:"can_add_posts" gorm:"default:false"`
	CanEditPosts      bool `json:"can_edit_posts" gorm:"default:false"`
	CanDeletePosts    bool `json:"can_delete_posts" gorm:"default:false"`
	CanAddComments    bool `json:"can_add_comments" gorm:"default:true"`
	CanEditComments   bool `json:"can_edit_comments" gorm:"default:false"`
	CanDeleteComments bool `json:"can_delete_comments" gorm:"default:false"`
	CanUploadFiles    bool `json:"can_upload_files" gorm:"default:false"`
	CanAccessAdmin    bool `json:"can_access_admin" gorm:"default:false"`
	IsAdmin           bool `json:"is_admin" gorm:"default:false"`

	MaxFileSize    int64 `json:"max_file_size" gorm:"default:5242880"`
	MaxPostsPerDay int   `json:"max_posts_per_day" gorm:"default:10"`

	CreatedAt time.Time `json:"created_at"`

	Users []User `json:"-" gorm:"foreignKey:GroupID"`
}

// Permissions snapshots the group's capability flags.
func (g *UserGroup) Permissions() PermissionSet {
	return PermissionSet{
		CanAddPosts:       g.CanAddPosts,
		CanEditPosts:      g.CanEditPosts,
		CanDeletePosts:    g.CanDeletePosts,
		CanAddComments:    g.CanAddComments,
		CanEditComments:   g.CanEditComments,
		CanDeleteComments: g.CanDeleteComments,
		CanUploadFiles:    g.CanUploadFiles,
		CanAccessAdmin:    g.CanAccessAdmin,
		IsAdmin:           g.IsAdmin,
	}
}

// User represents an account. Users are never hard-deleted; banning or
// deactivating keeps authored content referentially intact.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email        string `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `json:"-" gorm:"size:255;not null"` // Never expose in JSON

	FullName string `json:"full_name,omitempty" gorm:"size:100"`
	Avatar   string `json:"avatar,omitempty" gorm:"size:255"`
	Bio      string `json:"bio,omitempty" gorm:"type:text"`
	Website  string `json:"website,omitempty" gorm:"size:255"`

	IsActive   bool   `json:"is_active" gorm:"default:true;index"`
	IsVerified bool   `json:"is_verified" gorm:"default:false"`
	IsBanned   bool   `json:"is_banned" gorm:"default:false;index"`
	BanReason  string `json:"-" gorm:"type:text"`

	GroupID uint       `json:"group_id" gorm:"not null;index"`
	Group   *UserGroup `json:"group,omitempty" gorm:"foreignKey:GroupID"`

	PostsCount    int `json:"posts_count" gorm:"default:0"`
	CommentsCount int `json:"comments_count" gorm:"default:0"`

	LastLogin *time.Time `json:"last_login,omitempty"`
	LastIP    string     `json:"-" gorm:"size:45"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
