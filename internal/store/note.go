package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/model"
	"gorm.io/gorm"
)

func (s *Store) notes(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return s.conn(ctx).Model(&model.Note{}).Where("tenant_id = ?", tenantID)
}

// CountNotes returns the number of notes a tenant holds
func (s *Store) CountNotes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	defer track("note_count")()

	var count int64
	if err := s.notes(ctx, tenantID).Count(&count).Error; err != nil {
		return 0, translate("count notes", err)
	}
	return count, nil
}

// CountNotesSince counts a tenant's notes created at or after since
func (s *Store) CountNotesSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	defer track("note_count_since")()

	var count int64
	if err := s.notes(ctx, tenantID).Where("created_at >= ?", since).Count(&count).Error; err != nil {
		return 0, translate("count notes since", err)
	}
	return count, nil
}

// CreateNote inserts a note. TenantID and UserID must be set by the caller.
func (s *Store) CreateNote(ctx context.Context, note *model.Note) error {
	defer track("note_create")()
	return translate("create note", s.conn(ctx).Create(note).Error)
}

// ListNotes pages through a tenant's notes newest first, with authors preloaded
func (s *Store) ListNotes(ctx context.Context, tenantID uuid.UUID, page Page) ([]model.Note, int64, error) {
	defer track("note_list")()

	var total int64
	if err := s.notes(ctx, tenantID).Count(&total).Error; err != nil {
		return nil, 0, translate("count notes", err)
	}

	notes := []model.Note{}
	err := s.conn(ctx).
		Preload("Author").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Order("id").
		Offset(page.Offset).Limit(page.Limit).
		Find(&notes).Error
	if err != nil {
		return nil, 0, translate("list notes", err)
	}
	return notes, total, nil
}

// GetNote loads a note of tenantID with its author
func (s *Store) GetNote(ctx context.Context, tenantID, id uuid.UUID) (*model.Note, error) {
	defer track("note_get")()

	var note model.Note
	err := s.conn(ctx).
		Preload("Author").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&note).Error
	if err != nil {
		return nil, translate("get note", err)
	}
	return &note, nil
}

// UpdateNote replaces title and content of a note of tenantID
func (s *Store) UpdateNote(ctx context.Context, tenantID, id uuid.UUID, title, content string) (*model.Note, error) {
	defer track("note_update")()

	var note model.Note
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Note{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Updates(map[string]interface{}{
				"title":      title,
				"content":    content,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Preload("Author").Where("id = ? AND tenant_id = ?", id, tenantID).First(&note).Error
	})
	if err != nil {
		return nil, translate("update note", err)
	}
	return &note, nil
}

// DeleteNote removes a note of tenantID
func (s *Store) DeleteNote(ctx context.Context, tenantID, id uuid.UUID) error {
	defer track("note_delete")()

	result := s.conn(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Note{})
	if result.Error != nil {
		return translate("delete note", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentNotes returns the newest n notes of a tenant with authors
func (s *Store) RecentNotes(ctx context.Context, tenantID uuid.UUID, n int) ([]model.Note, error) {
	defer track("note_recent")()

	notes := []model.Note{}
	err := s.conn(ctx).
		Preload("Author").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").Order("id").
		Limit(n).
		Find(&notes).Error
	if err != nil {
		return nil, translate("recent notes", err)
	}
	return notes, nil
}
