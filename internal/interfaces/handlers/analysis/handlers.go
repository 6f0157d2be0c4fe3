package analysis

import (
	"errors"
	"strings"

	analysissvc "pisotrack-backend/internal/application/analysis"
	"pisotrack-backend/internal/middleware"
	"pisotrack-backend/internal/pkg/response"
	"pisotrack-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *analysissvc.Service
}

// AnalyzeWindows POST /api/v1/analysis/analyze-windows — run the vision
// assessment on 1-5 photo URLs and store the result against the property.
func (h *Handlers) AnalyzeWindows(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	var body struct {
		PropertyID string   `json:"property_id"`
		ImageURLs  []string `json:"image_urls"`
		Location   string   `json:"location"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.PropertyID == "" {
		return response.Error(c, "property_id is required", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(body.PropertyID)
	if err != nil {
		return response.Error(c, "Invalid property_id format", fiber.StatusBadRequest, nil)
	}

	rec, err := h.Service.AnalyzeWindows(c.Context(), owner, id, body.ImageURLs, body.Location)
	if err != nil {
		switch {
		case errors.Is(err, analysissvc.ErrImagesRequired), errors.Is(err, analysissvc.ErrTooManyImages),
			strings.HasPrefix(err.Error(), "Invalid image URL"):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, store.ErrNotFound):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		default:
			// Analysis failures pass through verbatim.
			return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
		}
	}
	return response.SuccessCreated(c, "Analysis stored successfully", rec, nil)
}

// GetAnalyses GET /api/v1/analysis/get-analyses/:property_id — all stored
// analyses for the property, newest first.
func (h *Handlers) GetAnalyses(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	idStr := c.Params("property_id")
	if idStr == "" {
		return response.Error(c, "property_id is required", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return response.Error(c, "Invalid property_id format", fiber.StatusBadRequest, nil)
	}
	records, err := h.Service.ListAnalyses(c.Context(), owner, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Analyses fetched successfully", records, nil)
}

// ownerID reads the authenticated user's id from the session locals.
func ownerID(c *fiber.Ctx) (uuid.UUID, error) {
	m, ok := middleware.GetUser(c).(map[string]interface{})
	if !ok {
		return uuid.Nil, errors.New("no session user")
	}
	s, _ := m["user_id"].(string)
	return uuid.Parse(s)
}
