// Package store defines the persistence contract for tracked listings. Two
// backends implement it: a shared GORM-backed store (gormstore) and a
// single-device JSON file store (localstore). Business logic never branches
// on which backend it was wired with.
package store

import (
	"context"
	"time"

	"pisotrack-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ListingPatch is a partial update. Nil fields are untouched; only the fields
// a writer sets are merged into the record, which limits the blast radius of
// concurrent writers to the fields each one touches.
type ListingPatch struct {
	Notes *string
	// Rating 1-5 sets the rating; 0 clears it back to null.
	Rating                  *int
	Stage                   *domain.Stage
	ScheduledVisitDate      *time.Time
	ClearScheduledVisitDate bool
	VisitedDate             *time.Time
}

// ListingStore is the durable record of tracked properties. Every operation
// is scoped to the owning user: an id that exists but belongs to someone else
// is indistinguishable from an id that does not exist.
type ListingStore interface {
	// List returns all listings owned by the caller, newest first.
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error)
	// Get returns the owner's listing or ErrNotFound.
	Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Listing, error)
	// Create persists a new listing in stage "new". Returns ErrDuplicate if
	// the owner already tracks this URL.
	Create(ctx context.Context, ownerID uuid.UUID, url string, scraped datatypes.JSON) (*domain.Listing, error)
	// Update merges the patch into the owner's record and refreshes updated_at.
	Update(ctx context.Context, ownerID, id uuid.UUID, patch ListingPatch) (*domain.Listing, error)
	// Delete permanently removes the owner's record. No soft delete.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// AnalysisStore holds vision-analysis results. Only the shared backend
// implements it; analyses are append-only.
type AnalysisStore interface {
	CreateAnalysis(ctx context.Context, rec *domain.AnalysisRecord) error
	ListAnalyses(ctx context.Context, listingID uuid.UUID) ([]domain.AnalysisRecord, error)
}

// BatchCreator inserts a set of listings for one owner in a single
// all-or-nothing transaction. Used by the local-to-shared migration.
type BatchCreator interface {
	CreateBatch(ctx context.Context, listings []domain.Listing) error
}
