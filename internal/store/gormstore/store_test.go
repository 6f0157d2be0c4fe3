package gormstore

import (
	"context"
	"testing"
	"time"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}, &domain.AnalysisRecord{}))
	return New(db)
}

func TestCreate_AssignsDefaults(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()

	listing, err := s.Create(context.Background(), owner, "https://example.com/123", datatypes.JSON(`{"title":"Flat"}`))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, listing.ID)
	assert.Equal(t, domain.StageNew, listing.Stage)
	assert.Equal(t, "", listing.Notes)
	assert.Nil(t, listing.Rating)
	assert.Nil(t, listing.ScheduledVisitDate)
	assert.Nil(t, listing.VisitedDate)
}

func TestCreate_DuplicatePerOwner(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	other := uuid.New()
	url := "https://example.com/123"

	_, err := s.Create(context.Background(), owner, url, nil)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), owner, url, nil)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// Same URL under a different owner succeeds
	_, err = s.Create(context.Background(), other, url, nil)
	require.NoError(t, err)

	listings, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

func TestList_OwnerScopedNewestFirst(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()

	first, err := s.Create(context.Background(), owner, "https://example.com/1", nil)
	require.NoError(t, err)
	// Force distinct created_at values
	require.NoError(t, s.DB.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)
	second, err := s.Create(context.Background(), owner, "https://example.com/2", nil)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), uuid.New(), "https://example.com/3", nil)
	require.NoError(t, err)

	listings, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, second.ID, listings[0].ID)
	assert.Equal(t, first.ID, listings[1].ID)
}

func TestGet_NotFound(t *testing.T) {
	s := setupStore(t)
	_, err := s.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGet_OtherOwnerReadsAsNotFound(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	listing, err := s.Create(context.Background(), owner, "https://example.com/123", nil)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), owner, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.ID, got.ID)

	_, err = s.Get(context.Background(), uuid.New(), listing.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdate_TouchesOnlyPatchedFields(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	listing, err := s.Create(context.Background(), owner, "https://example.com/123", datatypes.JSON(`{"title":"Flat"}`))
	require.NoError(t, err)

	notes := "nice balcony"
	updated, err := s.Update(context.Background(), owner, listing.ID, store.ListingPatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "nice balcony", updated.Notes)
	assert.Equal(t, listing.URL, updated.URL)
	assert.Equal(t, listing.Stage, updated.Stage)
	assert.JSONEq(t, `{"title":"Flat"}`, string(updated.ScrapedData))
	assert.Nil(t, updated.Rating)
}

func TestUpdate_RatingSetAndClear(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	listing, err := s.Create(context.Background(), owner, "https://example.com/123", nil)
	require.NoError(t, err)

	four := 4
	updated, err := s.Update(context.Background(), owner, listing.ID, store.ListingPatch{Rating: &four})
	require.NoError(t, err)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4, *updated.Rating)

	zero := 0
	updated, err = s.Update(context.Background(), owner, listing.ID, store.ListingPatch{Rating: &zero})
	require.NoError(t, err)
	assert.Nil(t, updated.Rating)
}

func TestUpdate_StageAndDates(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	listing, err := s.Create(context.Background(), owner, "https://example.com/123", nil)
	require.NoError(t, err)

	visit := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	scheduled := domain.StageScheduled
	updated, err := s.Update(context.Background(), owner, listing.ID, store.ListingPatch{
		Stage:              &scheduled,
		ScheduledVisitDate: &visit,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageScheduled, updated.Stage)
	require.NotNil(t, updated.ScheduledVisitDate)
	assert.True(t, visit.Equal(*updated.ScheduledVisitDate))

	stageNew := domain.StageNew
	updated, err = s.Update(context.Background(), owner, listing.ID, store.ListingPatch{
		Stage:                   &stageNew,
		ClearScheduledVisitDate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageNew, updated.Stage)
	assert.Nil(t, updated.ScheduledVisitDate)
}

func TestUpdate_NotFoundAndWrongOwner(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	notes := "x"
	_, err := s.Update(context.Background(), owner, uuid.New(), store.ListingPatch{Notes: &notes})
	assert.ErrorIs(t, err, store.ErrNotFound)

	listing, err := s.Create(context.Background(), owner, "https://example.com/123", nil)
	require.NoError(t, err)
	_, err = s.Update(context.Background(), uuid.New(), listing.ID, store.ListingPatch{Notes: &notes})
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.Get(context.Background(), owner, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Notes, "another owner's update must not land")
}

func TestDelete_CascadesAnalyses(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	listing, err := s.Create(context.Background(), owner, "https://example.com/123", nil)
	require.NoError(t, err)

	rec := &domain.AnalysisRecord{
		ListingID: listing.ID,
		ImageURLs: datatypes.JSON(`["https://img.example.com/1.jpg"]`),
		Location:  "Barcelona, Spain",
		Result:    datatypes.JSON(`{"bioclimatic_score":{"score":7}}`),
	}
	require.NoError(t, s.CreateAnalysis(context.Background(), rec))

	require.NoError(t, s.Delete(context.Background(), owner, listing.ID))

	_, err = s.Get(context.Background(), owner, listing.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	records, err := s.ListAnalyses(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDelete_NotFoundAndWrongOwner(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	assert.ErrorIs(t, s.Delete(context.Background(), owner, uuid.New()), store.ErrNotFound)

	listing, err := s.Create(context.Background(), owner, "https://example.com/123", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Delete(context.Background(), uuid.New(), listing.ID), store.ErrNotFound)

	// The record survives the foreign attempt.
	_, err = s.Get(context.Background(), owner, listing.ID)
	require.NoError(t, err)
}

func TestCreateBatch_AllOrNothing(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	_, err := s.Create(context.Background(), owner, "https://example.com/existing", nil)
	require.NoError(t, err)

	batch := []domain.Listing{
		{OwnerID: owner, URL: "https://example.com/a", Stage: domain.StageNew},
		{OwnerID: owner, URL: "https://example.com/existing", Stage: domain.StageNew}, // unique violation
	}
	err = s.CreateBatch(context.Background(), batch)
	require.Error(t, err)

	listings, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, listings, 1, "failed batch must not leave partial inserts")
}

func TestCreateBatch_Success(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	batch := []domain.Listing{
		{OwnerID: owner, URL: "https://example.com/a", Stage: domain.StageNew},
		{OwnerID: owner, URL: "https://example.com/b", Stage: domain.StageNew, Notes: "from old phone"},
	}
	require.NoError(t, s.CreateBatch(context.Background(), batch))

	listings, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestListAnalyses_ManyPerListing(t *testing.T) {
	s := setupStore(t)
	listing, err := s.Create(context.Background(), uuid.New(), "https://example.com/123", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rec := &domain.AnalysisRecord{
			ListingID: listing.ID,
			ImageURLs: datatypes.JSON(`["https://img.example.com/1.jpg"]`),
			Result:    datatypes.JSON(`{}`),
		}
		require.NoError(t, s.CreateAnalysis(context.Background(), rec))
	}
	records, err := s.ListAnalyses(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
