package models

import "time"

// PropertyChange represents a detected change on a listing, recorded
// whenever an admin edit touches one of the tracked fields.
type PropertyChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID      string    `gorm:"type:varchar(36);not null;index" json:"property_id"`
	ChangeType      string    `gorm:"type:varchar(50);not null" json:"change_type"`
	OldValue        string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue        string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `gorm:"type:decimal(14,2)" json:"change_magnitude,omitempty"` // For price changes
	DetectedAt      time.Time `gorm:"not null;autoCreateTime;index" json:"detected_at"`
}

// TableName specifies the table name
func (PropertyChange) TableName() string {
	return "property_changes"
}

// ChangeType constants
const (
	ChangeTypePrice    = "price_changed"
	ChangeTypeStatus   = "status_changed"
	ChangeTypeFeatured = "featured_changed"
	ChangeTypeFormat   = "type_changed"
	ChangeTypeName     = "name_changed"
	ChangeTypeNew      = "new_property"
	ChangeTypeRemoved  = "property_removed"
)
