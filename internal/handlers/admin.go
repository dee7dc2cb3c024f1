package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"phuket-estate/internal/cleanup"
	"phuket-estate/internal/database"
	"phuket-estate/internal/history"
	"phuket-estate/internal/ratelimit"
	"phuket-estate/internal/scheduler"
)

// AdminHandler serves the dashboard and maintenance endpoints
type AdminHandler struct {
	store      *database.Store
	scheduler  *scheduler.Scheduler
	history    *history.Service
	cleanup    *cleanup.Service
	limiter    *ratelimit.Limiter
	bcryptCost int
}

func NewAdminHandler(store *database.Store, sched *scheduler.Scheduler, historySvc *history.Service, cleanupSvc *cleanup.Service, limiter *ratelimit.Limiter, bcryptCost int) *AdminHandler {
	return &AdminHandler{
		store:      store,
		scheduler:  sched,
		history:    historySvc,
		cleanup:    cleanupSvc,
		limiter:    limiter,
		bcryptCost: bcryptCost,
	}
}

// GetStats returns the dashboard counters
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})

	propertyStats, err := h.store.GetPropertyStats()
	if err != nil {
		respondStoreError(c, err)
		return
	}
	stats["properties"] = propertyStats

	userStats, err := h.store.GetUserStats()
	if err != nil {
		respondStoreError(c, err)
		return
	}
	stats["users"] = userStats

	deleteStats, err := h.cleanup.GetDeleteStats()
	if err != nil {
		log.Printf("[Admin] failed to get delete stats: %v", err)
	} else {
		stats["deletions"] = deleteStats
	}

	recent, err := h.history.GetRecentChanges(10)
	if err != nil {
		log.Printf("[Admin] failed to get recent changes: %v", err)
	} else {
		stats["recent_changes"] = recent
	}

	recentUsers, err := h.store.GetRecentActiveUsers(7 * 24 * time.Hour)
	if err != nil {
		log.Printf("[Admin] failed to get recent users: %v", err)
	} else {
		stats["recent_users"] = recentUsers
	}

	stats["rate_limit"] = h.limiter.GetStats(c.ClientIP())

	c.JSON(http.StatusOK, stats)
}

// GetRecentChanges returns the latest catalog change rows
func (h *AdminHandler) GetRecentChanges(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	changes, err := h.history.GetRecentChanges(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}

// GetPropertyChanges returns the change rows for one listing
func (h *AdminHandler) GetPropertyChanges(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	changes, err := h.history.GetPropertyChanges(c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}

// RunCleanup triggers an orphan image purge. "dry_run=true" previews.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	cfg := cleanup.DefaultConfig()
	cfg.DryRun = c.Query("dry_run") == "true"
	if v := c.Query("max"); v != "" {
		if max, err := strconv.Atoi(v); err == nil && max > 0 {
			cfg.MaxDeletionCount = max
		}
	}

	result, err := h.cleanup.PurgeOrphanImages(cfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetDeleteLogs returns the latest delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.cleanup.GetRecentDeleteLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// TriggerMaintenance runs the daily maintenance job now
func (h *AdminHandler) TriggerMaintenance(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}

	log.Println("[Admin] manual maintenance trigger requested")

	// Run in goroutine to avoid blocking
	go func() {
		if err := h.scheduler.RunNow(); err != nil {
			log.Printf("[Admin] manual maintenance failed: %v", err)
		} else {
			log.Println("[Admin] manual maintenance completed successfully")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "maintenance started",
		"timestamp": time.Now(),
	})
}

// Reindex rebuilds the search index from the catalog, synchronously
func (h *AdminHandler) Reindex(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}

	if err := h.scheduler.Reindex(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reindex completed"})
}

// MigratePasswords re-hashes accounts still holding legacy credentials
func (h *AdminHandler) MigratePasswords(c *gin.Context) {
	migrated, err := h.store.MigrateLegacyPasswords(h.bcryptCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "migration failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"migrated": migrated,
		"count":    len(migrated),
	})
}
