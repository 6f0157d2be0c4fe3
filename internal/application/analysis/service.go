// Package analysis runs the window energy assessment for a listing's photos
// and appends the result as an immutable AnalysisRecord.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/pkg/validation"
	"pisotrack-backend/internal/store"
	"pisotrack-backend/internal/vision"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrImagesRequired = errors.New("imageUrls must be a non-empty array")
	ErrTooManyImages  = errors.New("Maximum 5 images allowed")
)

const maxImages = 5

type Service struct {
	Listings store.ListingStore
	Analyses store.AnalysisStore
	Analyzer vision.Analyzer
	// DefaultLocation is the deployment-configured location context; empty
	// falls through to the analyzer's built-in default.
	DefaultLocation string
}

// AnalyzeWindows validates the image list, calls the vision collaborator, and
// stores the result verbatim against the listing. An empty image list falls
// back to the photos in the listing's scraped payload. Many analyses per
// listing are allowed; records are never updated.
func (s *Service) AnalyzeWindows(ctx context.Context, ownerID, listingID uuid.UUID, imageURLs []string, location string) (*domain.AnalysisRecord, error) {
	// The owner's listing must exist before we spend a model call on it.
	listing, err := s.Listings.Get(ctx, ownerID, listingID)
	if err != nil {
		return nil, err
	}

	if len(imageURLs) == 0 {
		imageURLs = scrapedPhotos(listing)
	}
	if len(imageURLs) == 0 {
		return nil, ErrImagesRequired
	}
	if len(imageURLs) > maxImages {
		return nil, ErrTooManyImages
	}
	for _, u := range imageURLs {
		if !validation.IsValidHTTPURL(u) {
			return nil, fmt.Errorf("Invalid image URL: %s", u)
		}
	}

	if location == "" {
		location = s.DefaultLocation
	}
	if location == "" {
		location = vision.DefaultLocation
	}

	result, err := s.Analyzer.AnalyzeWindows(ctx, imageURLs, location)
	if err != nil {
		// Analysis failures propagate verbatim to the caller.
		return nil, err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("Failed to encode analysis result: %w", err)
	}
	urlsJSON, _ := json.Marshal(imageURLs)

	rec := &domain.AnalysisRecord{
		ListingID: listingID,
		ImageURLs: urlsJSON,
		Location:  location,
		Result:    resultJSON,
	}
	if err := s.Analyses.CreateAnalysis(ctx, rec); err != nil {
		return nil, err
	}
	log.Info().Str("listing_id", listingID.String()).
		Int("images", len(imageURLs)).
		Str("location", location).
		Msg("window analysis stored")
	return rec, nil
}

// ListAnalyses returns all stored analyses for the owner's listing, newest
// first.
func (s *Service) ListAnalyses(ctx context.Context, ownerID, listingID uuid.UUID) ([]domain.AnalysisRecord, error) {
	if _, err := s.Listings.Get(ctx, ownerID, listingID); err != nil {
		return nil, err
	}
	return s.Analyses.ListAnalyses(ctx, listingID)
}

// scrapedPhotos pulls usable photo URLs out of the scraped payload, capped at
// the per-analysis image limit.
func scrapedPhotos(listing *domain.Listing) []string {
	var urls []string
	for _, u := range domain.View(listing.ScrapedData).Photos() {
		if validation.IsValidHTTPURL(u) {
			urls = append(urls, u)
		}
		if len(urls) == maxImages {
			break
		}
	}
	return urls
}
