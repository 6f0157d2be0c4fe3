package properties

import (
	"errors"
	"fmt"
	"time"

	listsvc "pisotrack-backend/internal/application/listings"
	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/middleware"
	"pisotrack-backend/internal/pkg/response"
	"pisotrack-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *listsvc.Service
}

// CreateProperty POST /api/v1/properties/create-property — scrape the URL and
// start tracking it in stage "new".
func (h *Handlers) CreateProperty(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	listing, err := h.Service.CreateListing(c.Context(), owner, body.URL)
	if err != nil {
		switch {
		case errors.Is(err, listsvc.ErrURLRequired), errors.Is(err, listsvc.ErrInvalidURL):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, store.ErrDuplicate):
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		default:
			// Scrape and persistence failures pass through verbatim.
			return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
		}
	}
	return response.SuccessCreated(c, "Property created successfully", listing, nil)
}

// GetProperties GET /api/v1/properties/get-properties?stage= — the owner's
// board, newest first.
func (h *Handlers) GetProperties(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	var stage *domain.Stage
	if s := c.Query("stage"); s != "" {
		st := domain.Stage(s)
		if !st.IsValid() {
			return response.Error(c, fmt.Sprintf("Invalid stage: %s", s), fiber.StatusBadRequest, nil)
		}
		stage = &st
	}
	listings, err := h.Service.ListListings(c.Context(), owner, stage)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Properties fetched successfully", listings, nil)
}

// GetProperty GET /api/v1/properties/get-property/:property_id
func (h *Handlers) GetProperty(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	id, err := propertyIDParam(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.GetListing(c.Context(), owner, id)
	if err != nil {
		return notFoundOr500(c, err)
	}
	return response.Success(c, "Property fetched successfully", listing, nil)
}

// UpdateProperty PATCH /api/v1/properties/update-property/:property_id —
// notes and rating only; rating 0 clears it.
func (h *Handlers) UpdateProperty(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	id, err := propertyIDParam(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	var body struct {
		Notes  *string `json:"notes"`
		Rating *int    `json:"rating"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	listing, err := h.Service.UpdateAnnotations(c.Context(), owner, id, listsvc.UpdateAnnotationsInput{
		Notes:  body.Notes,
		Rating: body.Rating,
	})
	if err != nil {
		if errors.Is(err, listsvc.ErrInvalidRating) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return notFoundOr500(c, err)
	}
	return response.Success(c, "Property updated successfully", listing, nil)
}

// DeleteProperty DELETE /api/v1/properties/delete-property/:property_id —
// permanent, including stored analyses.
func (h *Handlers) DeleteProperty(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
	}
	id, err := propertyIDParam(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeleteListing(c.Context(), owner, id); err != nil {
		return notFoundOr500(c, err)
	}
	return response.Success(c, "Property deleted successfully", fiber.Map{}, nil)
}

// StageAction returns a handler for one lifecycle action. Body:
// { property_id, date? } where date is RFC3339 or YYYY-MM-DD.
func (h *Handlers) StageAction(action domain.StageAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := ownerID(c)
		if err != nil {
			return response.Error(c, "Unauthorized", fiber.StatusUnauthorized, nil)
		}
		var body struct {
			PropertyID string `json:"property_id"`
			Date       string `json:"date"`
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
		var date *time.Time
		if body.Date != "" {
			d, err := parseDate(body.Date)
			if err != nil {
				return response.Error(c, "Invalid date format", fiber.StatusBadRequest, nil)
			}
			date = d
		}

		listing, err := h.Service.ApplyStageAction(c.Context(), owner, id, action, date)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrVisitDateRequired):
				return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
			case errors.Is(err, domain.ErrInvalidTransition):
				return response.Error(c, err.Error(), fiber.StatusConflict, nil)
			default:
				return notFoundOr500(c, err)
			}
		}
		return response.Success(c, fmt.Sprintf("Stage action %s applied", action), listing, nil)
	}
}

func propertyIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	idStr := c.Params("property_id")
	if idStr == "" {
		return uuid.Nil, errors.New("property_id is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, errors.New("Invalid property_id format")
	}
	return id, nil
}

func notFoundOr500(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
}

func parseDate(s string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("invalid date")
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
