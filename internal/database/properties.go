package database

import (
	"sort"
	"strings"

	"gorm.io/gorm"

	"phuket-estate/internal/models"
)

// preloadImages loads a property's gallery in display order
func preloadImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("display_order ASC, created_at ASC")
	})
}

// GetAllProperties retrieves every listing with its images, newest first
func (s *Store) GetAllProperties() ([]models.Property, error) {
	var properties []models.Property
	err := preloadImages(s.db).Order("created_at DESC").Find(&properties).Error
	if err != nil {
		return nil, wrapErr("list properties", err)
	}
	return properties, nil
}

// GetFeaturedProperties retrieves available listings promoted on the homepage
func (s *Store) GetFeaturedProperties() ([]models.Property, error) {
	var properties []models.Property
	err := preloadImages(s.db).
		Where("featured = ? AND status = ?", true, models.PropertyStatusAvailable).
		Order("created_at DESC").
		Find(&properties).Error
	if err != nil {
		return nil, wrapErr("list featured properties", err)
	}
	return properties, nil
}

// GetPropertyByID retrieves one listing with its images
func (s *Store) GetPropertyByID(id string) (*models.Property, error) {
	var property models.Property
	err := preloadImages(s.db).Where("id = ?", id).First(&property).Error
	if err != nil {
		return nil, wrapErr("get property", err)
	}
	return &property, nil
}

// PropertyFilters holds the server-side search conditions for the public
// search endpoint. Only available listings are returned.
type PropertyFilters struct {
	Location     string
	PropertyType string
	Format       string
	SearchTerm   string
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	MaxBedrooms  *int
	FeaturedOnly bool
}

// SearchProperties queries listings against the store instead of in memory.
// Used when the catalog outgrows what a single page load should carry.
func (s *Store) SearchProperties(f PropertyFilters) ([]models.Property, error) {
	query := preloadImages(s.db).Where("status = ?", models.PropertyStatusAvailable)

	if f.Location != "" {
		query = query.Where("location = ?", f.Location)
	}
	if f.PropertyType != "" {
		query = query.Where("property_type = ?", f.PropertyType)
	}
	if f.Format != "" {
		query = query.Where("LOWER(type) = ?", strings.ToLower(f.Format))
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price < ?", *f.MaxPrice)
	}
	if f.MinBedrooms != nil {
		query = query.Where("bedrooms >= ?", *f.MinBedrooms)
	}
	if f.MaxBedrooms != nil {
		query = query.Where("bedrooms <= ?", *f.MaxBedrooms)
	}
	if f.FeaturedOnly {
		query = query.Where("featured = ?", true)
	}
	if f.SearchTerm != "" {
		term := "%" + strings.ToLower(f.SearchTerm) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}

	var properties []models.Property
	if err := query.Order("created_at DESC").Find(&properties).Error; err != nil {
		return nil, wrapErr("search properties", err)
	}
	return properties, nil
}

// CreateProperty validates required fields and inserts a new listing
func (s *Store) CreateProperty(p *models.Property) error {
	if err := validateProperty(p); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = models.PropertyStatusAvailable
	}
	if err := s.db.Create(p).Error; err != nil {
		return wrapErr("create property", err)
	}
	return nil
}

// UpdateProperty applies a partial field set to an existing listing and
// returns the updated record with images
func (s *Store) UpdateProperty(id string, updates map[string]interface{}) (*models.Property, error) {
	var existing models.Property
	if err := s.db.Where("id = ?", id).First(&existing).Error; err != nil {
		return nil, wrapErr("update property", err)
	}

	if len(updates) > 0 {
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, wrapErr("update property", err)
		}
	}

	return s.GetPropertyByID(id)
}

// DeleteProperty removes a listing and its image rows, writing a delete
// log entry. Returns the storage paths of the removed images so the caller
// can delete the stored files.
func (s *Store) DeleteProperty(id, deletedBy string) ([]string, error) {
	var property models.Property
	if err := preloadImages(s.db).Where("id = ?", id).First(&property).Error; err != nil {
		return nil, wrapErr("delete property", err)
	}

	paths := make([]string, 0, len(property.Images))
	for _, img := range property.Images {
		paths = append(paths, img.ImagePath)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		deleteLog := models.DeleteLog{
			PropertyID:   property.ID,
			Name:         property.Name,
			PropertyCode: property.PropertyCode,
			Reason:       models.DeleteReasonManual,
			DeletedBy:    deletedBy,
		}
		if err := tx.Create(&deleteLog).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Property{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, wrapErr("delete property", err)
	}

	return paths, nil
}

// GetLocations returns the distinct location labels used for faceting
func (s *Store) GetLocations() ([]string, error) {
	var locations []string
	err := s.db.Model(&models.Property{}).
		Where("location IS NOT NULL AND location != ''").
		Distinct().
		Pluck("location", &locations).Error
	if err != nil {
		return nil, wrapErr("list locations", err)
	}
	sort.Strings(locations)
	return locations, nil
}

// GetPropertyTypes returns the distinct property types used for faceting
func (s *Store) GetPropertyTypes() ([]string, error) {
	var types []string
	err := s.db.Model(&models.Property{}).
		Where("property_type IS NOT NULL AND property_type != ''").
		Distinct().
		Pluck("property_type", &types).Error
	if err != nil {
		return nil, wrapErr("list property types", err)
	}
	sort.Strings(types)
	return types, nil
}

// PropertyStats holds the aggregate counts shown on the admin dashboard
type PropertyStats struct {
	Total      int64            `json:"total"`
	Available  int64            `json:"available"`
	Sold       int64            `json:"sold"`
	Rented     int64            `json:"rented"`
	ByType     map[string]int64 `json:"by_type"`
	ByLocation map[string]int64 `json:"by_location"`
}

// GetPropertyStats aggregates listing counts by status, type and location
func (s *Store) GetPropertyStats() (*PropertyStats, error) {
	stats := &PropertyStats{
		ByType:     make(map[string]int64),
		ByLocation: make(map[string]int64),
	}

	if err := s.db.Model(&models.Property{}).Count(&stats.Total).Error; err != nil {
		return nil, wrapErr("property stats", err)
	}

	statusCounts := map[models.PropertyStatus]*int64{
		models.PropertyStatusAvailable: &stats.Available,
		models.PropertyStatusSold:      &stats.Sold,
		models.PropertyStatusRented:    &stats.Rented,
	}
	for status, dst := range statusCounts {
		if err := s.db.Model(&models.Property{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, wrapErr("property stats", err)
		}
	}

	type groupCount struct {
		Key   string
		Count int64
	}

	var byType []groupCount
	err := s.db.Model(&models.Property{}).
		Select("property_type as key, count(*) as count").
		Group("property_type").
		Scan(&byType).Error
	if err != nil {
		return nil, wrapErr("property stats", err)
	}
	for _, g := range byType {
		stats.ByType[g.Key] = g.Count
	}

	var byLocation []groupCount
	err = s.db.Model(&models.Property{}).
		Select("location as key, count(*) as count").
		Where("location != ''").
		Group("location").
		Scan(&byLocation).Error
	if err != nil {
		return nil, wrapErr("property stats", err)
	}
	for _, g := range byLocation {
		stats.ByLocation[g.Key] = g.Count
	}

	return stats, nil
}

func validateProperty(p *models.Property) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case strings.TrimSpace(p.PropertyType) == "":
		return &ValidationError{Field: "property_type", Reason: "required"}
	case strings.TrimSpace(p.Type) == "":
		return &ValidationError{Field: "type", Reason: "required"}
	case p.Price < 0:
		return &ValidationError{Field: "price", Reason: "must be non-negative"}
	case p.Bedrooms < 0 || p.Bathrooms < 0 || p.Kitchens < 0 || p.LivingRooms < 0 || p.CarParks < 0:
		return &ValidationError{Field: "rooms", Reason: "counts must be non-negative"}
	}
	if p.AreaSqm != nil && *p.AreaSqm < 0 {
		return &ValidationError{Field: "area_sqm", Reason: "must be non-negative"}
	}
	if p.LandAreaSqm != nil && *p.LandAreaSqm < 0 {
		return &ValidationError{Field: "land_area_sqm", Reason: "must be non-negative"}
	}
	if p.Status != "" && !validStatus(p.Status) {
		return &ValidationError{Field: "status", Reason: "unknown status"}
	}
	return nil
}

func validStatus(status models.PropertyStatus) bool {
	switch status {
	case models.PropertyStatusAvailable, models.PropertyStatusSold, models.PropertyStatusRented:
		return true
	}
	return false
}
