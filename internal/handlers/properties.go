package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"phuket-estate/internal/database"
	"phuket-estate/internal/history"
	"phuket-estate/internal/models"
	"phuket-estate/internal/search"
	"phuket-estate/internal/storage"
)

// PropertyHandler serves the public catalog and the admin listing CRUD
type PropertyHandler struct {
	store   *database.Store
	storage *storage.Client
	search  *search.SearchClient
	history *history.Service
}

// NewPropertyHandler creates a new property handler. The search client
// may be nil when Meilisearch is disabled.
func NewPropertyHandler(store *database.Store, storageClient *storage.Client, searchClient *search.SearchClient, historySvc *history.Service) *PropertyHandler {
	return &PropertyHandler{
		store:   store,
		storage: storageClient,
		search:  searchClient,
		history: historySvc,
	}
}

// GetProperties returns the whole catalog, filtered by the criteria
// carried in the query string. Sold and rented listings are included;
// status is presentation state, not a visibility filter. With no
// criteria the catalog comes back unchanged.
func (h *PropertyHandler) GetProperties(c *gin.Context) {
	start := time.Now()

	properties, err := h.store.GetAllProperties()
	if err != nil {
		respondStoreError(c, err)
		return
	}

	criteria := search.CriteriaFromQuery(c.Request.URL.Query())
	filtered := search.Filter(properties, criteria)

	log.Printf("[Filter API] total=%d matched=%d duration_ms=%d",
		len(properties), len(filtered), time.Since(start).Milliseconds())

	c.JSON(http.StatusOK, gin.H{
		"properties": filtered,
		"count":      len(filtered),
	})
}

// GetFeaturedProperties returns the homepage highlight listings
func (h *PropertyHandler) GetFeaturedProperties(c *gin.Context) {
	properties, err := h.store.GetFeaturedProperties()
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"properties": properties,
		"count":      len(properties),
	})
}

// GetProperty returns one listing by id
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	property, err := h.store.GetPropertyByID(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// GetLocations returns the distinct location facet values
func (h *PropertyHandler) GetLocations(c *gin.Context) {
	locations, err := h.store.GetLocations()
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

// GetPropertyTypes returns the distinct property type facet values
func (h *PropertyHandler) GetPropertyTypes(c *gin.Context) {
	types, err := h.store.GetPropertyTypes()
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}

// Search runs a full-text query through the search engine. Without an
// engine it degrades to a database query with the same criteria.
func (h *PropertyHandler) Search(c *gin.Context) {
	query := c.Query("q")
	criteria := search.CriteriaFromQuery(c.Request.URL.Query())

	if h.search == nil {
		h.searchFromStore(c, query, criteria)
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	result, err := h.search.FilterSearch(criteria, limit)
	if err != nil {
		log.Printf("[Search API] query failed q=%q: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	log.Printf("[Search API] q=%q hits=%d duration_ms=%d", query, len(result.Hits), result.ProcessingTime)
	c.JSON(http.StatusOK, gin.H{
		"properties": result.Hits,
		"count":      len(result.Hits),
		"total":      result.TotalHits,
	})
}

// searchFromStore serves /api/search straight from the database
func (h *PropertyHandler) searchFromStore(c *gin.Context, term string, criteria search.Criteria) {
	filters := database.PropertyFilters{
		SearchTerm:   term,
		Location:     criteria.Location,
		PropertyType: criteria.PropertyType,
		Format:       criteria.Format,
	}
	if min, max, ok := search.BucketBounds(criteria.PriceBucket); ok {
		filters.MinPrice = &min
		if max > 0 {
			filters.MaxPrice = &max
		}
	}
	if criteria.MinBedrooms > 0 {
		minBeds := criteria.MinBedrooms
		filters.MinBedrooms = &minBeds
	}

	properties, err := h.store.SearchProperties(filters)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	log.Printf("[Search API] q=%q hits=%d (database)", term, len(properties))
	c.JSON(http.StatusOK, gin.H{
		"properties": properties,
		"count":      len(properties),
		"total":      int64(len(properties)),
	})
}

// SearchFacets returns facet counts over the indexed catalog
func (h *PropertyHandler) SearchFacets(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is disabled"})
		return
	}

	facets, err := h.search.GetFacets([]string{"property_type", "location", "type", "status"})
	if err != nil {
		log.Printf("[Search API] facets failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"facets": facets})
}

// CreateProperty inserts a new listing (admin)
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.store.CreateProperty(&property); err != nil {
		respondStoreError(c, err)
		return
	}

	if err := h.history.RecordCreation(&property); err != nil {
		log.Printf("[Admin] failed to record creation of %s: %v", property.ID, err)
	}
	h.indexAsync(&property)

	c.JSON(http.StatusCreated, property)
}

// UpdateProperty applies a partial update to a listing (admin)
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	id := c.Param("id")

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	// immutable fields
	delete(updates, "id")
	delete(updates, "created_at")

	old, err := h.store.GetPropertyByID(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	updated, err := h.store.UpdateProperty(id, updates)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if err := h.history.RecordUpdate(old, updated); err != nil {
		log.Printf("[Admin] failed to record update of %s: %v", id, err)
	}
	h.indexAsync(updated)

	c.JSON(http.StatusOK, updated)
}

// DeleteProperty removes a listing, its images and its stored files (admin)
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	id := c.Param("id")

	property, err := h.store.GetPropertyByID(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	deletedBy := ""
	if claims := CurrentClaims(c); claims != nil {
		deletedBy = claims.Username
	}

	paths, err := h.store.DeleteProperty(id, deletedBy)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	for _, path := range paths {
		if err := h.storage.DeleteImage(path); err != nil {
			log.Printf("[Admin] failed to delete stored file %s: %v", path, err)
		}
	}

	if err := h.history.RecordRemoval(property); err != nil {
		log.Printf("[Admin] failed to record removal of %s: %v", id, err)
	}
	if h.search != nil {
		go func() {
			if err := h.search.RemoveProperty(id); err != nil {
				log.Printf("[Search API] failed to remove %s from index: %v", id, err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id, "removed_images": len(paths)})
}

// UploadImages stores the files of a multipart request as gallery images
// for one listing. Files that fail are reported individually; the others
// still go through.
func (h *PropertyHandler) UploadImages(c *gin.Context) {
	propertyID := c.Param("id")

	if _, err := h.store.GetPropertyByID(propertyID); err != nil {
		respondStoreError(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart form"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images in request"})
		return
	}

	uploaded := make([]models.PropertyImage, 0, len(files))
	failed := make([]gin.H, 0)

	for i, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			failed = append(failed, gin.H{"filename": fileHeader.Filename, "error": "unreadable file"})
			continue
		}

		key, url, err := h.storage.UploadPropertyImage(propertyID, fileHeader.Filename, file)
		file.Close()
		if err != nil {
			failed = append(failed, gin.H{"filename": fileHeader.Filename, "error": err.Error()})
			continue
		}

		img := models.PropertyImage{
			PropertyID:   propertyID,
			ImageURL:     url,
			ImagePath:    key,
			DisplayOrder: i,
		}
		if err := h.store.AddPropertyImage(&img); err != nil {
			// stored file without a row is an orphan; best effort removal
			if derr := h.storage.DeleteImage(key); derr != nil {
				log.Printf("[Admin] stranded upload %s: %v", key, derr)
			}
			failed = append(failed, gin.H{"filename": fileHeader.Filename, "error": "database insert failed"})
			continue
		}
		uploaded = append(uploaded, img)
	}

	status := http.StatusCreated
	if len(uploaded) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"uploaded": uploaded,
		"failed":   failed,
	})
}

// DeleteImage removes one gallery image and its stored file (admin)
func (h *PropertyHandler) DeleteImage(c *gin.Context) {
	removed, err := h.store.DeletePropertyImage(c.Param("imageId"))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if err := h.storage.DeleteImage(removed.ImagePath); err != nil {
		log.Printf("[Admin] failed to delete stored file %s: %v", removed.ImagePath, err)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": removed.ID})
}

// SetPrimaryImage marks one gallery image as the listing's primary (admin)
func (h *PropertyHandler) SetPrimaryImage(c *gin.Context) {
	propertyID := c.Param("id")
	imageID := c.Param("imageId")

	if err := h.store.SetPrimaryImage(imageID, propertyID); err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"primary": imageID})
}

type reorderRequest struct {
	ImageIDs []string `json:"image_ids" binding:"required"`
}

// ReorderImages rewrites the gallery display order (admin)
func (h *PropertyHandler) ReorderImages(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_ids is required"})
		return
	}

	if err := h.store.UpdateImageOrder(c.Param("id"), req.ImageIDs); err != nil {
		respondStoreError(c, err)
		return
	}

	images, err := h.store.GetPropertyImages(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// indexAsync pushes a listing into the search index without blocking the
// request
func (h *PropertyHandler) indexAsync(property *models.Property) {
	if h.search == nil {
		return
	}
	p := *property
	go func() {
		if err := h.search.IndexProperty(&p); err != nil {
			log.Printf("[Search API] failed to index %s: %v", p.ID, err)
		}
	}()
}
