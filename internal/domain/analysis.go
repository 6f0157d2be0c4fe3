package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisRecord is one stored vision-analysis result for a listing's photos.
// Records are append-only: created once, never updated.
type AnalysisRecord struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	Listing   *Listing       `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	ImageURLs datatypes.JSON `gorm:"column:image_urls;type:jsonb;not null" json:"image_urls"`
	Location  string         `gorm:"column:location;not null;default:''" json:"location"`
	Result    datatypes.JSON `gorm:"column:result;type:jsonb;not null" json:"result"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (AnalysisRecord) TableName() string {
	return "AnalysisRecords"
}

func (a *AnalysisRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
