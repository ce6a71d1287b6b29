package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note field limits
const (
	NoteTitleMaxLength   = 200
	NoteContentMaxLength = 10000
)

// Note is owned by a tenant and created by one of its users
type Note struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;index:idx_notes_tenant_created,priority:1"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"type:varchar(200);not null"`
	Content   string    `json:"content" gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_notes_tenant_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	// Author is preloaded for display; nil once the author has been removed
	Author *User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate assigns an id when the caller did not
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// AuthorEmail returns the creator's email or "Unknown"
func (n *Note) AuthorEmail() string {
	if n.Author == nil || n.Author.Email == "" {
		return "Unknown"
	}
	return n.Author.Email
}
