// Package gormstore is the shared-remote listing store: one row per listing
// keyed by id and scoped by owner_id, partial-field updates, hard deletes
// that cascade to analysis records.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch listings: %w", err)
	}
	return listings, nil
}

// Get is owner-predicated: another owner's listing id reads as not found.
func (s *Store) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (s *Store) Create(ctx context.Context, ownerID uuid.UUID, url string, scraped datatypes.JSON) (*domain.Listing, error) {
	// Pre-insert scan keeps the Duplicate error deterministic; the composite
	// unique index on (owner_id, url) closes the race between two sessions
	// that both pass the scan.
	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("owner_id = ? AND url = ?", ownerID, url).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("Failed to check existing listings: %w", err)
	}
	if count > 0 {
		return nil, store.ErrDuplicate
	}

	listing := &domain.Listing{
		OwnerID:     ownerID,
		URL:         url,
		ScrapedData: scraped,
		Notes:       "",
		Stage:       domain.StageNew,
	}
	if err := s.DB.WithContext(ctx).Create(listing).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, fmt.Errorf("Failed to create listing: %w", err)
	}
	return listing, nil
}

func (s *Store) Update(ctx context.Context, ownerID, id uuid.UUID, patch store.ListingPatch) (*domain.Listing, error) {
	updates := patchColumns(patch)

	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("id = ? AND owner_id = ?", id, ownerID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("Failed to update listing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, ownerID, id)
}

func (s *Store) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The owner check gates the whole transaction, analyses included.
		var count int64
		if err := tx.Model(&domain.Listing{}).
			Where("id = ? AND owner_id = ?", id, ownerID).Count(&count).Error; err != nil {
			return fmt.Errorf("Failed to check listing: %w", err)
		}
		if count == 0 {
			return store.ErrNotFound
		}
		if err := tx.Where("listing_id = ?", id).Delete(&domain.AnalysisRecord{}).Error; err != nil {
			return fmt.Errorf("Failed to delete analysis records: %w", err)
		}
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&domain.Listing{})
		if res.Error != nil {
			return fmt.Errorf("Failed to delete listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// CreateBatch inserts all listings in one transaction: either every record
// lands or none do.
func (s *Store) CreateBatch(ctx context.Context, listings []domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range listings {
			if err := tx.Create(&listings[i]).Error; err != nil {
				if isUniqueViolation(err) {
					return store.ErrDuplicate
				}
				return fmt.Errorf("Failed to insert listing %s: %w", listings[i].URL, err)
			}
		}
		return nil
	})
}

func (s *Store) CreateAnalysis(ctx context.Context, rec *domain.AnalysisRecord) error {
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("Failed to save analysis: %w", err)
	}
	return nil
}

func (s *Store) ListAnalyses(ctx context.Context, listingID uuid.UUID) ([]domain.AnalysisRecord, error) {
	var records []domain.AnalysisRecord
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch analyses: %w", err)
	}
	return records, nil
}

// patchColumns maps a ListingPatch to the exact set of columns it touches.
// updated_at always refreshes; everything else is untouched.
func patchColumns(patch store.ListingPatch) map[string]interface{} {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if patch.Rating != nil {
		if *patch.Rating == 0 {
			updates["rating"] = nil
		} else {
			updates["rating"] = *patch.Rating
		}
	}
	if patch.Stage != nil {
		updates["stage"] = *patch.Stage
	}
	if patch.ScheduledVisitDate != nil {
		updates["scheduled_visit_date"] = *patch.ScheduledVisitDate
	} else if patch.ClearScheduledVisitDate {
		updates["scheduled_visit_date"] = nil
	}
	if patch.VisitedDate != nil {
		updates["visited_date"] = *patch.VisitedDate
	}
	return updates
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
