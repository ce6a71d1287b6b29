package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/store"
)

// Pagination bounds
const (
	DefaultNotesPageSize = 50
	DefaultUsersPageSize = 20
	MaxPageSize          = 100

	// MaxPage keeps (page-1)*limit well inside an int32 offset
	MaxPage = math.MaxInt32 / MaxPageSize
)

// PageRequest is a 1-based page request
type PageRequest struct {
	Page  int
	Limit int
}

// Pagination describes a page of results
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func (p PageRequest) normalize(defaultLimit int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p PageRequest) window() store.Page {
	return store.Page{Offset: (p.Page - 1) * p.Limit, Limit: p.Limit}
}

func (p PageRequest) result(total int64) Pagination {
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

// ParseID parses a path identifier, rejecting malformed ids before any query
func ParseID(raw, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperror.InvalidIdentifier(resource)
	}
	return id, nil
}

// notFound turns store.ErrNotFound into a tenant-opaque not_found
func notFound(err error, resource, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(resource)
	}
	return fmt.Errorf("%s: %w", op, err)
}
