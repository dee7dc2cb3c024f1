package cleanup

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"phuket-estate/internal/models"
	"phuket-estate/internal/storage"
)

// Service removes orphaned image rows: gallery entries whose listing is
// gone, left behind by crashed deletes or direct database edits.
type Service struct {
	db      *gorm.DB
	storage *storage.Client
}

// NewService creates a new cleanup service. The storage client may be
// nil; stored files are then left in place and only rows are removed.
func NewService(db *gorm.DB, storageClient *storage.Client) *Service {
	return &Service{db: db, storage: storageClient}
}

// Config holds configuration for a cleanup run
type Config struct {
	MaxDeletionCount int  // Maximum number of images to delete in one run (safety limit)
	DryRun           bool // If true, only log what would be deleted without actually deleting
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MaxDeletionCount: 1000,
		DryRun:           false,
	}
}

// Result holds the result of a cleanup run
type Result struct {
	TargetCount   int       `json:"target_count"`
	DeletedCount  int       `json:"deleted_count"`
	ErrorCount    int       `json:"error_count"`
	DryRun        bool      `json:"dry_run"`
	ExecutedAt    time.Time `json:"executed_at"`
	DeletedImages []string  `json:"deleted_images"`
	Errors        []string  `json:"errors,omitempty"`
}

// FindOrphanImages finds image rows whose listing no longer exists
func (s *Service) FindOrphanImages() ([]models.PropertyImage, error) {
	var images []models.PropertyImage

	err := s.db.Where("NOT EXISTS (SELECT 1 FROM properties WHERE properties.id = property_images.property_id)").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find orphan images: %w", err)
	}

	return images, nil
}

// PurgeOrphanImages deletes orphaned image rows and their stored files,
// writing a delete log entry per image
func (s *Service) PurgeOrphanImages(config Config) (*Result, error) {
	result := &Result{
		DryRun:     config.DryRun,
		ExecutedAt: time.Now(),
	}

	orphans, err := s.FindOrphanImages()
	if err != nil {
		return nil, err
	}

	result.TargetCount = len(orphans)
	if result.TargetCount == 0 {
		log.Println("[Cleanup] no orphan images found")
		return result, nil
	}

	// Safety check: abort if too many images would be deleted
	if config.MaxDeletionCount > 0 && result.TargetCount > config.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d orphan images exceed max deletion limit of %d",
			result.TargetCount, config.MaxDeletionCount)
	}

	log.Printf("[Cleanup] starting: %d orphan images (dry-run: %v)", result.TargetCount, config.DryRun)

	for _, img := range orphans {
		if config.DryRun {
			log.Printf("[Cleanup] [DRY-RUN] would delete image %s (property: %s, path: %s)",
				img.ID, img.PropertyID, img.ImagePath)
			result.DeletedImages = append(result.DeletedImages, img.ID)
			result.DeletedCount++
			continue
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			deleteLog := models.DeleteLog{
				PropertyID: img.PropertyID,
				Name:       img.ImagePath,
				Reason:     models.DeleteReasonOrphanImage,
				DeletedBy:  "cleanup",
			}
			if err := tx.Create(&deleteLog).Error; err != nil {
				return err
			}
			return tx.Delete(&models.PropertyImage{}, "id = ?", img.ID).Error
		})
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("image %s: %v", img.ID, err))
			continue
		}

		if s.storage != nil && img.ImagePath != "" {
			if err := s.storage.DeleteImage(img.ImagePath); err != nil {
				// Row is already gone; log the stranded file and move on
				log.Printf("[Cleanup] failed to delete stored file %s: %v", img.ImagePath, err)
			}
		}

		result.DeletedImages = append(result.DeletedImages, img.ID)
		result.DeletedCount++
	}

	log.Printf("[Cleanup] finished: deleted=%d errors=%d", result.DeletedCount, result.ErrorCount)
	return result, nil
}

// GetRecentDeleteLogs returns the latest delete log entries
func (s *Service) GetRecentDeleteLogs(limit int) ([]models.DeleteLog, error) {
	var logs []models.DeleteLog
	query := s.db.Order("deleted_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteStats aggregates delete log entries by reason
type DeleteStats struct {
	Total    int64            `json:"total"`
	ByReason map[string]int64 `json:"by_reason"`
}

// GetDeleteStats returns delete log counts grouped by reason
func (s *Service) GetDeleteStats() (*DeleteStats, error) {
	stats := &DeleteStats{ByReason: make(map[string]int64)}

	if err := s.db.Model(&models.DeleteLog{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type reasonCount struct {
		Reason string
		Count  int64
	}
	var byReason []reasonCount
	err := s.db.Model(&models.DeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&byReason).Error
	if err != nil {
		return nil, err
	}
	for _, g := range byReason {
		stats.ByReason[g.Reason] = g.Count
	}

	return stats, nil
}
