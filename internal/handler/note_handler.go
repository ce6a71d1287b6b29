package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/internal/service"
)

// NoteHandler serves /notes
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler creates the note handler
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

type noteRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=10000"`
}

func (h *NoteHandler) bindNote(c echo.Context) (service.NoteInput, error) {
	var req noteRequest
	if err := decode(c, &req); err != nil {
		return service.NoteInput{}, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := c.Validate(&req); err != nil {
		return service.NoteInput{}, err
	}
	return service.NoteInput{Title: req.Title, Content: req.Content}, nil
}

// Create adds a note, subject to the tenant's plan limit
func (h *NoteHandler) Create(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	in, err := h.bindNote(c)
	if err != nil {
		return err
	}

	note, err := h.notes.Create(c.Request().Context(), identity, in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Note created successfully",
		"note":    newNoteResponse(note),
	})
}

// List returns a page of the tenant's notes
func (h *NoteHandler) List(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}

	notes, pagination, err := h.notes.List(c.Request().Context(), identity, pageRequest(c))
	if err != nil {
		return err
	}

	out := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, newNoteResponse(&notes[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"notes":      out,
		"pagination": pagination,
	})
}

// Get returns one note
func (h *NoteHandler) Get(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := service.ParseID(c.Param("id"), "note")
	if err != nil {
		return err
	}

	note, err := h.notes.Get(c.Request().Context(), identity, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"note": newNoteResponse(note)})
}

// Update replaces a note's title and content
func (h *NoteHandler) Update(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := service.ParseID(c.Param("id"), "note")
	if err != nil {
		return err
	}
	in, err := h.bindNote(c)
	if err != nil {
		return err
	}

	note, err := h.notes.Update(c.Request().Context(), identity, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Note updated successfully",
		"note":    newNoteResponse(note),
	})
}

// Delete removes a note
func (h *NoteHandler) Delete(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	id, err := service.ParseID(c.Param("id"), "note")
	if err != nil {
		return err
	}

	if err := h.notes.Delete(c.Request().Context(), identity, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":         "Note deleted successfully",
		"deleted_note_id": id,
	})
}
