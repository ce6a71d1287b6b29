package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/internal/model"
	"github.com/suteetoe/notes-service/internal/service"
)

// TenantHandler serves /tenants/:slug
type TenantHandler struct {
	tenants *service.TenantService
}

// NewTenantHandler creates the tenant handler
func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

type tenantResponse struct {
	*model.Tenant
	Stats service.TenantUsage `json:"stats"`
}

type recentNote struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}

// Get returns the caller's tenant with usage counts
func (h *TenantHandler) Get(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}

	details, err := h.tenants.Get(c.Request().Context(), identity, c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"tenant": tenantResponse{Tenant: details.Tenant, Stats: details.Usage},
	})
}

// Upgrade moves the caller's tenant to the pro plan
func (h *TenantHandler) Upgrade(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}

	tenant, err := h.tenants.Upgrade(c.Request().Context(), identity, c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tenant upgraded to Pro plan successfully",
		"tenant":  tenant,
	})
}

// Stats returns the admin usage breakdown and the newest notes
func (h *TenantHandler) Stats(c echo.Context) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}

	stats, recent, err := h.tenants.Stats(c.Request().Context(), identity, c.Param("slug"))
	if err != nil {
		return err
	}

	notes := make([]recentNote, 0, len(recent))
	for i := range recent {
		notes = append(notes, recentNote{
			ID:        recent[i].ID,
			Title:     recent[i].Title,
			CreatedAt: recent[i].CreatedAt,
			CreatedBy: recent[i].AuthorEmail(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"stats":        stats,
		"recent_notes": notes,
	})
}
