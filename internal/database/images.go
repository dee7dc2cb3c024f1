package database

import (
	"errors"

	"gorm.io/gorm"

	"phuket-estate/internal/models"
)

// GetPropertyImages retrieves a listing's gallery in display order
func (s *Store) GetPropertyImages(propertyID string) ([]models.PropertyImage, error) {
	var images []models.PropertyImage
	err := s.db.Where("property_id = ?", propertyID).
		Order("display_order ASC, created_at ASC").
		Find(&images).Error
	if err != nil {
		return nil, wrapErr("list property images", err)
	}
	return images, nil
}

// GetPropertyImage retrieves a single image row by its id
func (s *Store) GetPropertyImage(id string) (*models.PropertyImage, error) {
	var image models.PropertyImage
	if err := s.db.Where("id = ?", id).First(&image).Error; err != nil {
		return nil, wrapErr("get property image", err)
	}
	return &image, nil
}

// AddPropertyImage inserts a new image row for an existing listing.
// When the new image is marked primary, every other primary flag on the
// same listing is cleared in the same transaction so at most one image
// stays primary.
func (s *Store) AddPropertyImage(img *models.PropertyImage) error {
	if img.PropertyID == "" {
		return &ValidationError{Field: "property_id", Reason: "required"}
	}
	if img.ImageURL == "" {
		return &ValidationError{Field: "image_url", Reason: "required"}
	}

	var count int64
	if err := s.db.Model(&models.Property{}).Where("id = ?", img.PropertyID).Count(&count).Error; err != nil {
		return wrapErr("add property image", err)
	}
	if count == 0 {
		return ErrNotFound
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if img.IsPrimary {
			err := tx.Model(&models.PropertyImage{}).
				Where("property_id = ?", img.PropertyID).
				Update("is_primary", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Create(img).Error
	})
	if err != nil {
		return wrapErr("add property image", err)
	}
	return nil
}

// DeletePropertyImage removes an image row and returns the removed row so
// the caller can delete the stored file
func (s *Store) DeletePropertyImage(id string) (*models.PropertyImage, error) {
	var image models.PropertyImage
	if err := s.db.Where("id = ?", id).First(&image).Error; err != nil {
		return nil, wrapErr("delete property image", err)
	}
	if err := s.db.Delete(&models.PropertyImage{}, "id = ?", id).Error; err != nil {
		return nil, wrapErr("delete property image", err)
	}
	return &image, nil
}

// SetPrimaryImage marks one image as the listing's primary in a single
// transaction: clear every primary flag on the listing, then set the one.
// After it returns the listing has exactly one primary image.
func (s *Store) SetPrimaryImage(imageID, propertyID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var image models.PropertyImage
		err := tx.Where("id = ? AND property_id = ?", imageID, propertyID).First(&image).Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.PropertyImage{}).
			Where("property_id = ?", propertyID).
			Update("is_primary", false).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.PropertyImage{}).
			Where("id = ?", imageID).
			Update("is_primary", true).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return wrapErr("set primary image", err)
	}
	return nil
}

// UpdateImageOrder rewrites the display order of a listing's gallery.
// Image ids not belonging to the listing are ignored.
func (s *Store) UpdateImageOrder(propertyID string, orderedIDs []string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			err := tx.Model(&models.PropertyImage{}).
				Where("id = ? AND property_id = ?", id, propertyID).
				Update("display_order", i).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapErr("update image order", err)
	}
	return nil
}
