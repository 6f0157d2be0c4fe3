// Package migration moves listings from the single-device file store into
// the shared store, once, on user request.
package migration

import (
	"context"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/store"
	"pisotrack-backend/internal/store/localstore"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LocalSource is what migration needs from the local store.
type LocalSource interface {
	Export() ([]localstore.LegacyListing, error)
	Clear() error
}

type Service struct {
	Local  LocalSource
	Shared store.BatchCreator
}

// Result reports the migration outcome.
type Result struct {
	Count int `json:"count"`
}

// Migrate reads every local record, maps it into the shared schema, and
// inserts the whole set in one transaction under the given owner. The local
// file is cleared only after the insert has committed; any failure leaves it
// untouched, so a retry sees all original records.
func (s *Service) Migrate(ctx context.Context, ownerID uuid.UUID) (*Result, error) {
	records, err := s.Local.Export()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Result{Count: 0}, nil
	}

	listings := make([]domain.Listing, 0, len(records))
	for _, rec := range records {
		// Legacy records carry no lifecycle state the shared board trusts:
		// every migrated listing starts over in stage "new" with empty visit
		// dates and no enthusiasm score.
		listings = append(listings, domain.Listing{
			OwnerID:     ownerID,
			URL:         rec.URL,
			ScrapedData: rec.Data,
			Notes:       rec.Notes,
			Rating:      rec.Rating,
			Stage:       domain.StageNew,
			CreatedAt:   rec.DateAdded,
			UpdatedAt:   rec.DateModified,
		})
	}

	if err := s.Shared.CreateBatch(ctx, listings); err != nil {
		log.Error().Err(err).Int("count", len(listings)).Msg("migration batch insert failed, local store untouched")
		return nil, err
	}

	if err := s.Local.Clear(); err != nil {
		// The records are safe on the shared side; report the cleanup failure.
		log.Error().Err(err).Msg("migration committed but local store could not be cleared")
		return nil, err
	}

	log.Info().Int("count", len(listings)).Str("owner_id", ownerID.String()).Msg("migration complete")
	return &Result{Count: len(listings)}, nil
}
