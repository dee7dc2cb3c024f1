package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyImage represents an image associated with a property
type PropertyImage struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID   string    `gorm:"type:varchar(36);not null;index" json:"property_id"`
	ImageURL     string    `gorm:"type:text;not null" json:"image_url"`
	ImagePath    string    `gorm:"type:text;not null" json:"image_path"`
	AltText      string    `gorm:"type:varchar(255)" json:"alt_text,omitempty"`
	IsPrimary    bool      `gorm:"not null;default:false;index" json:"is_primary"`
	DisplayOrder int       `gorm:"not null;default:0;index" json:"display_order"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for PropertyImage
func (PropertyImage) TableName() string {
	return "property_images"
}

func (img *PropertyImage) BeforeCreate(tx *gorm.DB) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	return nil
}
