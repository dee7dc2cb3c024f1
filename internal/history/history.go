package history

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"phuket-estate/internal/models"
)

// Service records listing changes made through the admin API so the
// dashboard can show what happened to the catalog recently
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordCreation logs a new listing entering the catalog
func (s *Service) RecordCreation(property *models.Property) error {
	change := models.PropertyChange{
		PropertyID: property.ID,
		ChangeType: models.ChangeTypeNew,
		NewValue:   property.Name,
		DetectedAt: time.Now(),
	}
	return s.db.Create(&change).Error
}

// RecordRemoval logs a listing leaving the catalog
func (s *Service) RecordRemoval(property *models.Property) error {
	change := models.PropertyChange{
		PropertyID: property.ID,
		ChangeType: models.ChangeTypeRemoved,
		OldValue:   property.Name,
		DetectedAt: time.Now(),
	}
	return s.db.Create(&change).Error
}

// RecordUpdate compares the listing before and after an admin edit and
// logs one change row per tracked field that differs
func (s *Service) RecordUpdate(old, updated *models.Property) error {
	changes := DetectChanges(old, updated)
	if len(changes) == 0 {
		return nil
	}
	return s.db.Create(&changes).Error
}

// DetectChanges compares two versions of a listing on the tracked fields
func DetectChanges(old, updated *models.Property) []models.PropertyChange {
	now := time.Now()
	changes := []models.PropertyChange{}

	if old.Price != updated.Price {
		magnitude := updated.Price - old.Price
		changes = append(changes, models.PropertyChange{
			PropertyID:      updated.ID,
			ChangeType:      models.ChangeTypePrice,
			OldValue:        fmt.Sprintf("%.2f", old.Price),
			NewValue:        fmt.Sprintf("%.2f", updated.Price),
			ChangeMagnitude: &magnitude,
			DetectedAt:      now,
		})
	}

	if old.Status != updated.Status {
		changes = append(changes, models.PropertyChange{
			PropertyID: updated.ID,
			ChangeType: models.ChangeTypeStatus,
			OldValue:   string(old.Status),
			NewValue:   string(updated.Status),
			DetectedAt: now,
		})
	}

	if old.Featured != updated.Featured {
		changes = append(changes, models.PropertyChange{
			PropertyID: updated.ID,
			ChangeType: models.ChangeTypeFeatured,
			OldValue:   fmt.Sprintf("%t", old.Featured),
			NewValue:   fmt.Sprintf("%t", updated.Featured),
			DetectedAt: now,
		})
	}

	if old.Type != updated.Type {
		changes = append(changes, models.PropertyChange{
			PropertyID: updated.ID,
			ChangeType: models.ChangeTypeFormat,
			OldValue:   old.Type,
			NewValue:   updated.Type,
			DetectedAt: now,
		})
	}

	if old.Name != updated.Name {
		changes = append(changes, models.PropertyChange{
			PropertyID: updated.ID,
			ChangeType: models.ChangeTypeName,
			OldValue:   old.Name,
			NewValue:   updated.Name,
			DetectedAt: now,
		})
	}

	return changes
}

// GetRecentChanges returns the latest change rows across the catalog
func (s *Service) GetRecentChanges(limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.Order("detected_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

// GetPropertyChanges returns the change rows for one listing
func (s *Service) GetPropertyChanges(propertyID string, limit int) ([]models.PropertyChange, error) {
	var changes []models.PropertyChange
	query := s.db.Where("property_id = ?", propertyID).Order("detected_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}
