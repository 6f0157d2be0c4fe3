// Package listings implements the tracked-property operations: create from a
// scrape, annotate, move through lifecycle stages, delete.
package listings

import (
	"context"
	"errors"
	"time"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/pkg/validation"
	"pisotrack-backend/internal/scrape"
	"pisotrack-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrURLRequired   = errors.New("URL is required")
	ErrInvalidURL    = errors.New("Please provide a valid HTTP/HTTPS URL")
	ErrInvalidRating = errors.New("Rating must be between 1 and 5")
)

type Service struct {
	Store   store.ListingStore
	Scraper scrape.Scraper
}

// CreateListing scrapes the URL and persists a new record in stage "new".
// A duplicate URL for the same owner is rejected before the scrape runs.
func (s *Service) CreateListing(ctx context.Context, ownerID uuid.UUID, url string) (*domain.Listing, error) {
	if url == "" {
		return nil, ErrURLRequired
	}
	if !validation.IsValidHTTPURL(url) {
		return nil, ErrInvalidURL
	}

	// Cheap duplicate check first so a duplicate submission never pays for a
	// scrape. The store enforces the same rule again at insert time.
	existing, err := s.Store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, l := range existing {
		if l.URL == url {
			return nil, store.ErrDuplicate
		}
	}

	scraped, err := s.Scraper.Scrape(ctx, url)
	if err != nil {
		// Scrape failures propagate verbatim as the create failure reason.
		return nil, err
	}

	listing, err := s.Store.Create(ctx, ownerID, url, scraped)
	if err != nil {
		return nil, err
	}
	title, _ := domain.View(listing.ScrapedData).Title()
	log.Info().Str("listing_id", listing.ID.String()).Str("url", url).Str("title", title).Msg("listing created")
	return listing, nil
}

// ListListings returns the owner's listings newest first, optionally filtered
// by stage.
func (s *Service) ListListings(ctx context.Context, ownerID uuid.UUID, stage *domain.Stage) ([]domain.Listing, error) {
	listings, err := s.Store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return listings, nil
	}
	filtered := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Stage == *stage {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}

func (s *Service) GetListing(ctx context.Context, ownerID, id uuid.UUID) (*domain.Listing, error) {
	return s.Store.Get(ctx, ownerID, id)
}

// UpdateAnnotationsInput carries the user-editable annotation fields. Nil
// means "leave unchanged"; Rating 0 clears the rating.
type UpdateAnnotationsInput struct {
	Notes  *string
	Rating *int
}

func (s *Service) UpdateAnnotations(ctx context.Context, ownerID, id uuid.UUID, in UpdateAnnotationsInput) (*domain.Listing, error) {
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 5) {
		return nil, ErrInvalidRating
	}
	return s.Store.Update(ctx, ownerID, id, store.ListingPatch{
		Notes:  in.Notes,
		Rating: in.Rating,
	})
}

func (s *Service) DeleteListing(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	log.Info().Str("listing_id", id.String()).Msg("listing deleted")
	return nil
}

// ApplyStageAction runs one lifecycle transition against the listing. The
// transition table decides legality; the resulting change is written as an
// atomic partial update touching only the stage and its date fields.
func (s *Service) ApplyStageAction(ctx context.Context, ownerID, id uuid.UUID, action domain.StageAction, date *time.Time) (*domain.Listing, error) {
	listing, err := s.Store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	change, err := domain.Transition(listing.Stage, action, date)
	if err != nil {
		return nil, err
	}

	patch := store.ListingPatch{
		Stage:                   &change.To,
		ScheduledVisitDate:      change.SetScheduledVisitDate,
		ClearScheduledVisitDate: change.ClearScheduledVisitDate,
		VisitedDate:             change.SetVisitedDate,
	}
	updated, err := s.Store.Update(ctx, ownerID, id, patch)
	if err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", id.String()).
		Str("action", string(action)).
		Str("from", string(listing.Stage)).
		Str("to", string(change.To)).
		Msg("stage transition applied")
	return updated, nil
}
