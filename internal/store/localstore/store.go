// Package localstore is the single-device listing store: one JSON file
// holding a single array of legacy-shaped records, rewritten wholesale on
// every mutation. It assumes one active session and does no concurrency
// control beyond serializing its own calls.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"pisotrack-backend/internal/domain"
	"pisotrack-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// DefaultPath mirrors the storage key the legacy client used.
const DefaultPath = "property-tracker-properties.json"

// LegacyListing is the on-disk record shape. The stage fields are a later
// addition and are omitted for records that never left stage "new", so files
// written by the legacy client still parse.
type LegacyListing struct {
	ID                 string         `json:"id"`
	URL                string         `json:"url"`
	Data               datatypes.JSON `json:"data"`
	Notes              string         `json:"notes"`
	Rating             *int           `json:"rating"`
	DateAdded          time.Time      `json:"dateAdded"`
	DateModified       time.Time      `json:"dateModified"`
	Stage              domain.Stage   `json:"stage,omitempty"`
	ScheduledVisitDate *time.Time     `json:"scheduledVisitDate,omitempty"`
	VisitedDate        *time.Time     `json:"visitedDate,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.read()
	listings := make([]domain.Listing, 0, len(records))
	for _, rec := range records {
		listings = append(listings, toDomain(rec))
	}
	return listings, nil
}

// Get ignores ownerID: the file holds exactly one implicit owner's records,
// so owner scoping is trivially satisfied.
func (s *Store) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.read() {
		if matches(rec.ID, id) {
			l := toDomain(rec)
			return &l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) Create(ctx context.Context, ownerID uuid.UUID, url string, scraped datatypes.JSON) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.read()
	for _, rec := range records {
		if rec.URL == url {
			return nil, store.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	rec := LegacyListing{
		ID:           uuid.New().String(),
		URL:          url,
		Data:         scraped,
		Notes:        "",
		DateAdded:    now,
		DateModified: now,
		Stage:        domain.StageNew,
	}
	// New records go to the front: the list order is newest first.
	records = append([]LegacyListing{rec}, records...)
	if err := s.write(records); err != nil {
		return nil, err
	}
	l := toDomain(rec)
	return &l, nil
}

func (s *Store) Update(ctx context.Context, ownerID, id uuid.UUID, patch store.ListingPatch) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.read()
	idx := -1
	for i, rec := range records {
		if matches(rec.ID, id) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, store.ErrNotFound
	}

	rec := records[idx]
	if patch.Notes != nil {
		rec.Notes = *patch.Notes
	}
	if patch.Rating != nil {
		if *patch.Rating == 0 {
			rec.Rating = nil
		} else {
			r := *patch.Rating
			rec.Rating = &r
		}
	}
	if patch.Stage != nil {
		rec.Stage = *patch.Stage
	}
	if patch.ScheduledVisitDate != nil {
		d := *patch.ScheduledVisitDate
		rec.ScheduledVisitDate = &d
	} else if patch.ClearScheduledVisitDate {
		rec.ScheduledVisitDate = nil
	}
	if patch.VisitedDate != nil {
		d := *patch.VisitedDate
		rec.VisitedDate = &d
	}
	rec.DateModified = time.Now().UTC()

	records[idx] = rec
	if err := s.write(records); err != nil {
		return nil, err
	}
	l := toDomain(rec)
	return &l, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.read()
	filtered := records[:0:0]
	for _, rec := range records {
		if !matches(rec.ID, id) {
			filtered = append(filtered, rec)
		}
	}
	if len(filtered) == len(records) {
		return store.ErrNotFound
	}
	return s.write(filtered)
}

// Export returns the raw legacy records for migration.
func (s *Store) Export() ([]LegacyListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

// Count reports how many local records exist, for the migration prompt.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.read())
}

// Clear removes the backing file entirely. Called only after a migration has
// fully committed on the shared side.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// read loads the whole array. A missing or corrupt file reads as empty, same
// as the legacy client.
func (s *Store) read() []LegacyListing {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return []LegacyListing{}
	}
	var records []LegacyListing
	if err := json.Unmarshal(b, &records); err != nil {
		log.Warn().Str("path", s.path).Err(err).Msg("local store file is not valid JSON, treating as empty")
		return []LegacyListing{}
	}
	return records
}

func (s *Store) write(records []LegacyListing) error {
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		// Quota and disk errors all surface the same way to the caller.
		return store.ErrStorageFull
	}
	return nil
}

// matches compares a stored id against a parsed UUID, accepting the derived
// UUID for records whose legacy ids were not UUIDs.
func matches(recID string, id uuid.UUID) bool {
	return recID == id.String() || recordID(recID) == id
}

// recordID maps a stored id to a UUID, deriving a stable one for legacy
// client-generated ids.
func recordID(recID string) uuid.UUID {
	if id, err := uuid.Parse(recID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recID))
}

func toDomain(rec LegacyListing) domain.Listing {
	id := recordID(rec.ID)
	stage := rec.Stage
	if !stage.IsValid() {
		stage = domain.StageNew
	}
	return domain.Listing{
		ID:                 id,
		URL:                rec.URL,
		ScrapedData:        rec.Data,
		Notes:              rec.Notes,
		Rating:             rec.Rating,
		Stage:              stage,
		ScheduledVisitDate: rec.ScheduledVisitDate,
		VisitedDate:        rec.VisitedDate,
		CreatedAt:          rec.DateAdded,
		UpdatedAt:          rec.DateModified,
	}
}
