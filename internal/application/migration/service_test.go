package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/store"
	"pisotrack-backend/internal/store/gormstore"
	"pisotrack-backend/internal/store/localstore"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupShared(t *testing.T) *gormstore.Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}, &domain.AnalysisRecord{}))
	return gormstore.New(db)
}

func seedLocal(t *testing.T, local *localstore.Store, urls ...string) {
	for _, u := range urls {
		_, err := local.Create(context.Background(), uuid.Nil, u, datatypes.JSON(`{"title":"Flat"}`))
		require.NoError(t, err)
	}
}

func TestMigrate_Empty(t *testing.T) {
	local := localstore.New(filepath.Join(t.TempDir(), "properties.json"))
	svc := &Service{Local: local, Shared: setupShared(t)}

	result, err := svc.Migrate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}

func TestMigrate_MovesRecordsAndClearsLocal(t *testing.T) {
	local := localstore.New(filepath.Join(t.TempDir(), "properties.json"))
	shared := setupShared(t)
	seedLocal(t, local, "https://example.com/1", "https://example.com/2")
	svc := &Service{Local: local, Shared: shared}
	owner := uuid.New()

	result, err := svc.Migrate(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 0, local.Count())

	listings, err := shared.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	for _, l := range listings {
		assert.Equal(t, domain.StageNew, l.Stage)
		assert.Nil(t, l.ScheduledVisitDate)
		assert.Nil(t, l.VisitedDate)
		assert.Nil(t, l.EnthusiasmScore)
	}
}

func TestMigrate_ResetsLifecycleState(t *testing.T) {
	// A record that was scheduled on the old device still lands in "new".
	local := localstore.New(filepath.Join(t.TempDir(), "properties.json"))
	created, err := local.Create(context.Background(), uuid.Nil, "https://example.com/1", nil)
	require.NoError(t, err)
	visit := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	scheduled := domain.StageScheduled
	_, err = local.Update(context.Background(), uuid.Nil, created.ID, store.ListingPatch{Stage: &scheduled, ScheduledVisitDate: &visit})
	require.NoError(t, err)

	shared := setupShared(t)
	svc := &Service{Local: local, Shared: shared}
	owner := uuid.New()

	result, err := svc.Migrate(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)

	listings, err := shared.List(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, domain.StageNew, listings[0].Stage)
	assert.Nil(t, listings[0].ScheduledVisitDate)
}

func TestMigrate_InsertFailureLeavesLocalIntact(t *testing.T) {
	local := localstore.New(filepath.Join(t.TempDir(), "properties.json"))
	seedLocal(t, local, "https://example.com/1", "https://example.com/2")
	svc := &Service{Local: local, Shared: failingBatch{}}

	_, err := svc.Migrate(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, 2, local.Count(), "failed migration must not consume local records")
}

func TestMigrate_RetryAfterFailure(t *testing.T) {
	local := localstore.New(filepath.Join(t.TempDir(), "properties.json"))
	shared := setupShared(t)
	seedLocal(t, local, "https://example.com/1")
	svc := &Service{Local: local, Shared: failingBatch{}}

	_, err := svc.Migrate(context.Background(), uuid.New())
	require.Error(t, err)

	svc.Shared = shared
	owner := uuid.New()
	result, err := svc.Migrate(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 0, local.Count())
}

type failingBatch struct{}

func (failingBatch) CreateBatch(ctx context.Context, listings []domain.Listing) error {
	return errors.New("connection refused")
}
