package search

import (
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"phuket-estate/internal/models"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "properties",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"name",
		"description",
		"address",
		"property_code",
		"location",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"price",
		"property_type",
		"type",
		"status",
		"location",
		"bedrooms",
		"bathrooms",
		"featured",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"bedrooms",
		"created_at",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexProperty indexes a single listing
func (s *SearchClient) IndexProperty(property *models.Property) error {
	_, err := s.client.Index(s.index).AddDocuments([]models.Property{*property})
	return err
}

// IndexProperties indexes multiple listings
func (s *SearchClient) IndexProperties(properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(properties)
	return err
}

// RemoveProperty deletes a listing from the index
func (s *SearchClient) RemoveProperty(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

// SearchRequest represents advanced search parameters
type SearchRequest struct {
	Query  string
	Limit  int64
	Offset int64
	Filter []string
	Sort   []string
	Facets []string
}

// SearchResult represents search results with facets
type SearchResult struct {
	Hits           []models.Property
	TotalHits      int64
	Facets         map[string]interface{}
	ProcessingTime int64
}

// Search searches available listings with basic options
func (s *SearchClient) Search(query string, limit int64) ([]models.Property, error) {
	result, err := s.AdvancedSearch(SearchRequest{
		Query:  query,
		Limit:  limit,
		Filter: []string{fmt.Sprintf("status = %q", models.PropertyStatusAvailable)},
	})
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// FilterSearch runs the catalog criteria against the index instead of in
// memory. Used when the caller wants the engine-side path for the same
// filter semantics.
func (s *SearchClient) FilterSearch(c Criteria, limit int64) (*SearchResult, error) {
	filters := []string{fmt.Sprintf("status = %q", models.PropertyStatusAvailable)}

	if c.Location != "" {
		filters = append(filters, fmt.Sprintf("location = %q", c.Location))
	}
	if c.PropertyType != "" {
		filters = append(filters, fmt.Sprintf("property_type = %q", c.PropertyType))
	}
	if c.Format != "" {
		filters = append(filters, fmt.Sprintf("type = %q", strings.ToLower(c.Format)))
	}
	if min, max, ok := BucketBounds(c.PriceBucket); ok {
		filters = append(filters, fmt.Sprintf("price >= %.0f", min))
		if max > 0 {
			filters = append(filters, fmt.Sprintf("price < %.0f", max))
		}
	}
	if c.MinBedrooms > 0 {
		filters = append(filters, fmt.Sprintf("bedrooms >= %d", c.MinBedrooms))
	}
	if c.MinBathrooms > 0 {
		filters = append(filters, fmt.Sprintf("bathrooms >= %d", c.MinBathrooms))
	}

	query := c.Query
	if c.PropertyCode != "" {
		query = c.PropertyCode
	}

	return s.AdvancedSearch(SearchRequest{
		Query:  query,
		Limit:  limit,
		Filter: filters,
	})
}

// AdvancedSearch performs a search with facets and filters
func (s *SearchClient) AdvancedSearch(req SearchRequest) (*SearchResult, error) {
	if req.Limit == 0 {
		req.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	if len(req.Filter) > 0 {
		searchReq.Filter = strings.Join(req.Filter, " AND ")
	}
	if len(req.Sort) > 0 {
		searchReq.Sort = req.Sort
	}
	if len(req.Facets) > 0 {
		searchReq.Facets = req.Facets
	}

	searchRes, err := s.client.Index(s.index).Search(req.Query, searchReq)
	if err != nil {
		return nil, err
	}

	properties := make([]models.Property, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		properties = append(properties, parsePropertyFromHit(hit))
	}

	var facets map[string]interface{}
	if searchRes.FacetDistribution != nil {
		facets, _ = searchRes.FacetDistribution.(map[string]interface{})
	}

	return &SearchResult{
		Hits:           properties,
		TotalHits:      searchRes.EstimatedTotalHits,
		Facets:         facets,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

// parsePropertyFromHit converts a search hit to a Property
func parsePropertyFromHit(hit interface{}) models.Property {
	hitMap, ok := hit.(map[string]interface{})
	if !ok {
		return models.Property{}
	}

	property := models.Property{
		ID:           getString(hitMap, "id"),
		Name:         getString(hitMap, "name"),
		Description:  getString(hitMap, "description"),
		Address:      getString(hitMap, "address"),
		PropertyCode: getString(hitMap, "property_code"),
		PropertyType: getString(hitMap, "property_type"),
		Type:         getString(hitMap, "type"),
		Status:       models.PropertyStatus(getString(hitMap, "status")),
		Location:     getString(hitMap, "location"),
	}

	// Parse numeric fields
	if price, ok := hitMap["price"].(float64); ok {
		property.Price = price
	}
	if bedrooms, ok := hitMap["bedrooms"].(float64); ok {
		property.Bedrooms = int(bedrooms)
	}
	if bathrooms, ok := hitMap["bathrooms"].(float64); ok {
		property.Bathrooms = int(bathrooms)
	}
	if area, ok := hitMap["area_sqm"].(float64); ok {
		property.AreaSqm = &area
	}
	if featured, ok := hitMap["featured"].(bool); ok {
		property.Featured = featured
	}

	return property
}

// getString safely extracts a string from map
func getString(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

// GetFacets retrieves facet distribution for specified fields
func (s *SearchClient) GetFacets(facets []string) (map[string]interface{}, error) {
	searchRes, err := s.client.Index(s.index).Search("", &meilisearch.SearchRequest{
		Limit:  0,
		Facets: facets,
	})
	if err != nil {
		return nil, err
	}

	if searchRes.FacetDistribution != nil {
		if facetMap, ok := searchRes.FacetDistribution.(map[string]interface{}); ok {
			return facetMap, nil
		}
	}
	return map[string]interface{}{}, nil
}
