package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/internal/apperror"
	"github.com/suteetoe/notes-service/internal/middleware"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/service"
)

// NoteResponse is the public shape of a note
type NoteResponse struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedByEmail string    `json:"created_by_email"`
}

func newNoteResponse(n *model.Note) NoteResponse {
	return NoteResponse{
		ID:             n.ID,
		Title:          n.Title,
		Content:        n.Content,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
		CreatedByEmail: n.AuthorEmail(),
	}
}

// decode reads the request body into req
func decode(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.Wrap(apperror.KindValidation, "invalid request body", err)
	}
	return nil
}

// bind decodes the body into req and runs the echo validator on it
func bind(c echo.Context, req interface{}) error {
	if err := decode(c, req); err != nil {
		return err
	}
	return c.Validate(req)
}

// pageRequest reads page and limit query parameters; bad values fall back to defaults
func pageRequest(c echo.Context) service.PageRequest {
	page, _ := strconv.Atoi(strings.TrimSpace(c.QueryParam("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(c.QueryParam("limit")))
	return service.PageRequest{Page: page, Limit: limit}
}

func caller(c echo.Context) (model.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, apperror.New(apperror.KindMissingCredential, "authentication required")
	}
	return identity, nil
}
