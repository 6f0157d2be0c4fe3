package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing is a tracked property: the raw scraped payload plus the user's
// annotations and lifecycle stage.
type Listing struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerID            uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index;uniqueIndex:idx_owner_url" json:"owner_id"`
	URL                string         `gorm:"column:url;not null;uniqueIndex:idx_owner_url" json:"url"`
	ScrapedData        datatypes.JSON `gorm:"column:scraped_data;type:jsonb" json:"scraped_data"`
	Notes              string         `gorm:"column:notes;not null;default:''" json:"notes"`
	Rating             *int           `gorm:"column:rating" json:"rating"`
	EnthusiasmScore    *int           `gorm:"column:enthusiasm_score" json:"enthusiasm_score"`
	Stage              Stage          `gorm:"column:stage;type:varchar(20);not null;default:'new'" json:"stage"`
	ScheduledVisitDate *time.Time     `gorm:"column:scheduled_visit_date" json:"scheduled_visit_date"`
	VisitedDate        *time.Time     `gorm:"column:visited_date" json:"visited_date"`
	CreatedAt          time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "Listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
