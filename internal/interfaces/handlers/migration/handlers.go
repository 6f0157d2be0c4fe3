package migration

import (
	"errors"

	migrationsvc "pisotrack-backend/internal/application/migration"
	"pisotrack-backend/internal/middleware"
	"pisotrack-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Counter is the part of the local store the status endpoint needs.
type Counter interface {
	Count() int
}

type Handlers struct {
	Service *migrationsvc.Service
	Local   Counter
}

// MigrateLocal POST /api/v1/migration/migrate-local — one-time import of the
// local file store into the shared store under the authenticated owner. The
// local data survives any failure.
func (h *Handlers) MigrateLocal(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	result, err := h.Service.Migrate(c.Context(), owner)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Migration complete", result, nil)
}

// LocalStatus GET /api/v1/migration/local-status — how many local records are
// waiting, for the migration prompt.
func (h *Handlers) LocalStatus(c *fiber.Ctx) error {
	count := 0
	if h.Local != nil {
		count = h.Local.Count()
	}
	return response.Success(c, "Local store status", fiber.Map{
		"count":        count,
		"hasLocalData": count > 0,
	}, nil)
}

func ownerID(c *fiber.Ctx) (uuid.UUID, error) {
	m, ok := middleware.GetUser(c).(map[string]interface{})
	if !ok {
		return uuid.Nil, errors.New("no session user")
	}
	s, _ := m["user_id"].(string)
	return uuid.Parse(s)
}
