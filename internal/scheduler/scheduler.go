package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"phuket-estate/internal/cleanup"
	"phuket-estate/internal/config"
	"phuket-estate/internal/database"
	"phuket-estate/internal/search"
)

// Scheduler runs the daily maintenance job: rebuild the search index
// from the catalog and purge orphaned image rows
type Scheduler struct {
	cron      *cron.Cron
	store     *database.Store
	search    *search.SearchClient
	cleanup   *cleanup.Service
	config    *config.Config
	isRunning bool
}

// NewScheduler creates a new scheduler. The search client may be nil
// when Meilisearch is disabled; reindexing is then skipped.
func NewScheduler(store *database.Store, searchClient *search.SearchClient, cleanupSvc *cleanup.Service, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		store:   store,
		search:  searchClient,
		cleanup: cleanupSvc,
		config:  cfg,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.DailyRunEnabled {
		log.Println("Scheduler: Daily run is disabled in configuration")
		return nil
	}

	cronSpec := parseDailyRunTime(s.config.Scheduler.DailyRunTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		log.Println("Scheduler: Starting daily maintenance job...")
		if err := s.RunNow(); err != nil {
			log.Printf("Scheduler: Daily maintenance failed: %v", err)
		} else {
			log.Println("Scheduler: Daily maintenance completed successfully")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: Started with daily run at %s (cron: %s)", s.config.Scheduler.DailyRunTime, cronSpec)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		log.Println("Scheduler: Stopped")
	}
}

// RunNow executes the maintenance routine immediately. Also called from
// the admin API for a manual trigger.
func (s *Scheduler) RunNow() error {
	if err := s.Reindex(); err != nil {
		return err
	}

	result, err := s.cleanup.PurgeOrphanImages(cleanup.Config{
		MaxDeletionCount: cleanup.DefaultConfig().MaxDeletionCount,
		DryRun:           s.config.Scheduler.CleanupDryRun,
	})
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	log.Printf("Scheduler: Cleanup removed %d orphan images (%d errors)", result.DeletedCount, result.ErrorCount)

	return nil
}

// Reindex rebuilds the search index from the catalog
func (s *Scheduler) Reindex() error {
	if s.search == nil {
		log.Println("Scheduler: Search is disabled, skipping reindex")
		return nil
	}

	properties, err := s.store.GetAllProperties()
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	if err := s.search.IndexProperties(properties); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	log.Printf("Scheduler: Reindexed %d properties", len(properties))
	return nil
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "03:00" -> "0 3 * * *" (run at 3:00 AM every day)
func parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	log.Printf("Scheduler: Invalid daily run time %q, falling back to 03:00", timeStr)
	return "0 3 * * *"
}
