package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/quota"
	"github.com/suteetoe/notes-service/internal/store"
	"github.com/suteetoe/notes-service/prometheus"
	"go.uber.org/zap"
)

// NoteInput is the writable part of a note
type NoteInput struct {
	Title   string
	Content string
}

func (in NoteInput) normalize() NoteInput {
	in.Title = strings.TrimSpace(in.Title)
	return in
}

// NoteService manages a tenant's notes. Every call is scoped to the caller's tenant.
type NoteService struct {
	store *store.Store
	quota *quota.Enforcer
	log   *zap.Logger
}

// NewNoteService creates a note service
func NewNoteService(s *store.Store, enforcer *quota.Enforcer, log *zap.Logger) *NoteService {
	return &NoteService{store: s, quota: enforcer, log: log.Named("notes")}
}

// Create adds a note for the caller, subject to the tenant's plan limit
func (s *NoteService) Create(ctx context.Context, caller model.Identity, in NoteInput) (*model.Note, error) {
	in = in.normalize()
	note := &model.Note{
		TenantID: caller.TenantID,
		UserID:   caller.ID,
		Title:    in.Title,
		Content:  in.Content,
	}

	err := s.quota.Create(ctx, caller.TenantID, caller.SubscriptionPlan, func(ctx context.Context) error {
		return s.store.CreateNote(ctx, note)
	})
	if err != nil {
		return nil, err
	}

	note.Author = &model.User{ID: caller.ID, Email: caller.Email}
	prometheus.RecordNoteOperation("create")
	s.log.Debug("Note created", zap.String("note_id", note.ID.String()), zap.String("tenant_id", caller.TenantID.String()))
	return note, nil
}

// List pages through the caller's tenant notes, newest first
func (s *NoteService) List(ctx context.Context, caller model.Identity, req PageRequest) ([]model.Note, Pagination, error) {
	req = req.normalize(DefaultNotesPageSize)

	notes, total, err := s.store.ListNotes(ctx, caller.TenantID, req.window())
	if err != nil {
		return nil, Pagination{}, err
	}
	return notes, req.result(total), nil
}

// Get returns a note of the caller's tenant
func (s *NoteService) Get(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Note, error) {
	note, err := s.store.GetNote(ctx, caller.TenantID, id)
	if err != nil {
		return nil, notFound(err, "note", "get note")
	}
	return note, nil
}

// Update replaces title and content. Any member of the tenant may edit any note.
func (s *NoteService) Update(ctx context.Context, caller model.Identity, id uuid.UUID, in NoteInput) (*model.Note, error) {
	in = in.normalize()

	note, err := s.store.UpdateNote(ctx, caller.TenantID, id, in.Title, in.Content)
	if err != nil {
		return nil, notFound(err, "note", "update note")
	}
	prometheus.RecordNoteOperation("update")
	return note, nil
}

// Delete removes a note of the caller's tenant
func (s *NoteService) Delete(ctx context.Context, caller model.Identity, id uuid.UUID) error {
	if err := s.store.DeleteNote(ctx, caller.TenantID, id); err != nil {
		return notFound(err, "note", "delete note")
	}
	prometheus.RecordNoteOperation("delete")
	s.log.Debug("Note deleted", zap.String("note_id", id.String()), zap.String("tenant_id", caller.TenantID.String()))
	return nil
}
