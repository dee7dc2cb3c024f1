package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyStatus is the listing status shown to the public site
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "Available"
	PropertyStatusSold      PropertyStatus = "Sold"
	PropertyStatusRented    PropertyStatus = "Rented"
)

// Amenities holds the optional amenity flags of a listing.
// The set is open: new flags are added as columns when admins need them.
type Amenities struct {
	SwimmingPool bool `gorm:"not null;default:false" json:"swimming_pool"`
	Fitness      bool `gorm:"not null;default:false" json:"fitness"`
	Playground   bool `gorm:"not null;default:false" json:"playground"`
}

type Property struct {
	// 基本情報
	ID           string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	Description  string `gorm:"type:text" json:"description,omitempty"`
	Address      string `gorm:"type:text" json:"address,omitempty"`
	PropertyCode string `gorm:"type:varchar(50);index" json:"property_code,omitempty"`

	// 分類
	PropertyType string         `gorm:"type:varchar(50);not null;index" json:"property_type"`
	Type         string         `gorm:"type:varchar(20);not null;index" json:"type"`
	Status       PropertyStatus `gorm:"type:varchar(20);not null;default:'Available';index" json:"status"`
	Location     string         `gorm:"type:varchar(100);index" json:"location,omitempty"`

	// 物件属性
	Bedrooms    int      `gorm:"not null;default:0" json:"bedrooms"`
	Bathrooms   int      `gorm:"not null;default:0" json:"bathrooms"`
	Kitchens    int      `gorm:"not null;default:0" json:"kitchens"`
	LivingRooms int      `gorm:"not null;default:0" json:"living_rooms"`
	CarParks    int      `gorm:"not null;default:0" json:"car_parks"`
	AreaSqm     *float64 `gorm:"type:decimal(10,2)" json:"area_sqm,omitempty"`
	LandAreaSqm *float64 `gorm:"type:decimal(10,2)" json:"land_area_sqm,omitempty"`

	// 価格・掲載
	Price     float64   `gorm:"type:decimal(14,2);not null;index" json:"price"`
	Featured  bool      `gorm:"not null;default:false;index" json:"featured"`
	Amenities Amenities `gorm:"embedded;embeddedPrefix:amenity_" json:"amenities"`

	Images []PropertyImage `gorm:"foreignKey:PropertyID" json:"images,omitempty"`

	// タイムスタンプ
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_properties_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName はテーブル名を明示的に指定
func (Property) TableName() string {
	return "properties"
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsAvailable reports whether the listing is open for sale or rent
func (p *Property) IsAvailable() bool {
	return p.Status == PropertyStatusAvailable
}

// PrimaryImage returns the image flagged as primary. When no image carries
// the flag, the first image in display order is treated as primary by
// convention. Returns nil for a listing without images.
func (p *Property) PrimaryImage() *PropertyImage {
	if len(p.Images) == 0 {
		return nil
	}
	best := &p.Images[0]
	for i := range p.Images {
		img := &p.Images[i]
		if img.IsPrimary {
			return img
		}
		if img.DisplayOrder < best.DisplayOrder {
			best = img
		}
	}
	return best
}
