package models

import "time"

// DeleteLog represents a record of deleted listings and media
type DeleteLog struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID   string    `gorm:"type:varchar(36);not null;index" json:"property_id"`
	Name         string    `gorm:"type:text" json:"name"`
	PropertyCode string    `gorm:"type:varchar(50)" json:"property_code,omitempty"`
	Reason       string    `gorm:"type:varchar(50);not null" json:"reason"`
	DeletedBy    string    `gorm:"type:varchar(100)" json:"deleted_by,omitempty"`
	DeletedAt    time.Time `gorm:"not null;autoCreateTime;index" json:"deleted_at"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonManual      = "manual_deletion"
	DeleteReasonOrphanImage = "orphan_image"
)
