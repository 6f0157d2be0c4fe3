package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func setupStore(t *testing.T) *Store {
	return New(filepath.Join(t.TempDir(), "properties.json"))
}

func TestCreate_PrependsNewest(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()

	_, err := s.Create(context.Background(), owner, "https://example.com/1", nil)
	require.NoError(t, err)
	second, err := s.Create(context.Background(), owner, "https://example.com/2", nil)
	require.NoError(t, err)

	listings, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, second.ID, listings[0].ID)
}

func TestCreate_Duplicate(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()

	_, err := s.Create(context.Background(), owner, "https://example.com/1", nil)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), owner, "https://example.com/1", nil)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestGetUpdateDelete_RoundTrip(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	created, err := s.Create(context.Background(), owner, "https://example.com/1", datatypes.JSON(`{"title":"Flat"}`))
	require.NoError(t, err)

	got, err := s.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.URL, got.URL)

	notes := "second viewing booked"
	three := 3
	updated, err := s.Update(context.Background(), owner, created.ID, store.ListingPatch{Notes: &notes, Rating: &three})
	require.NoError(t, err)
	assert.Equal(t, "second viewing booked", updated.Notes)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 3, *updated.Rating)

	require.NoError(t, s.Delete(context.Background(), owner, created.ID))
	_, err = s.Get(context.Background(), owner, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdate_NotFound(t *testing.T) {
	s := setupStore(t)
	notes := "x"
	_, err := s.Update(context.Background(), uuid.New(), uuid.New(), store.ListingPatch{Notes: &notes})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLegacyRecords_NonUUIDIDs(t *testing.T) {
	// Files written by the old client use timestamp-style ids, not UUIDs.
	path := filepath.Join(t.TempDir(), "properties.json")
	legacy := `[{"id":"1717243200000abc","url":"https://example.com/old","data":{"title":"Old flat"},"notes":"","rating":null,"dateAdded":"2024-06-01T12:00:00Z","dateModified":"2024-06-01T12:00:00Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))
	s := New(path)

	owner := uuid.New()
	listings, err := s.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, domain.StageNew, listings[0].Stage)

	// The derived UUID must route back to the same record.
	got, err := s.Get(context.Background(), owner, listings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/old", got.URL)

	notes := "still worth a look"
	_, err = s.Update(context.Background(), owner, listings[0].ID, store.ListingPatch{Notes: &notes})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), owner, listings[0].ID))
	assert.Equal(t, 0, s.Count())
}

func TestRead_ToleratesMissingAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	s := New(filepath.Join(dir, "missing.json"))
	listings, err := s.List(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, listings)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	s = New(corrupt)
	listings, err = s.List(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestStagePersistence(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	created, err := s.Create(context.Background(), owner, "https://example.com/1", nil)
	require.NoError(t, err)

	visit := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	scheduled := domain.StageScheduled
	_, err = s.Update(context.Background(), owner, created.ID, store.ListingPatch{
		Stage:              &scheduled,
		ScheduledVisitDate: &visit,
	})
	require.NoError(t, err)

	// Reopen the file to prove the stage survived serialization.
	reopened := New(s.path)
	got, err := reopened.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageScheduled, got.Stage)
	require.NotNil(t, got.ScheduledVisitDate)
	assert.True(t, visit.Equal(*got.ScheduledVisitDate))
}

func TestExportCountClear(t *testing.T) {
	s := setupStore(t)
	owner := uuid.New()
	_, err := s.Create(context.Background(), owner, "https://example.com/1", nil)
	require.NoError(t, err)
	_, err = s.Create(context.Background(), owner, "https://example.com/2", nil)
	require.NoError(t, err)

	records, err := s.Export()
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, s.Count())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
	// Clearing an already-empty store is a no-op.
	require.NoError(t, s.Clear())
}

func TestWrite_FailureMapsToStorageFull(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "no-such-dir", "properties.json"))
	_, err := s.Create(context.Background(), uuid.New(), "https://example.com/1", nil)
	assert.ErrorIs(t, err, store.ErrStorageFull)
}
