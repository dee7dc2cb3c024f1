package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phuket-estate/internal/auth"
	"phuket-estate/internal/cleanup"
	"phuket-estate/internal/config"
	"phuket-estate/internal/database"
	"phuket-estate/internal/history"
	"phuket-estate/internal/models"
	"phuket-estate/internal/ratelimit"
	"phuket-estate/internal/scheduler"
	"phuket-estate/internal/storage"
)

type testEnv struct {
	store  *database.Store
	router *gin.Engine
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := database.NewStoreFromDB(db)
	require.NoError(t, store.InitSchema())

	tokens, err := auth.NewTokenService("test-secret-key-32-characters-ok", time.Hour, "phuket-estate")
	require.NoError(t, err)

	provider, err := storage.NewLocalProvider(t.TempDir(), "http://localhost:8084/media")
	require.NoError(t, err)
	storageClient := storage.NewWithProvider(provider)

	limiter := ratelimit.NewLimiter(1000, 10000, true)
	historySvc := history.NewService(db)
	cleanupSvc := cleanup.NewService(db, storageClient)

	cfg := config.DefaultConfig()
	sched := scheduler.NewScheduler(store, nil, cleanupSvc, cfg)

	authHandler := NewAuthHandler(store, tokens, limiter)
	propertyHandler := NewPropertyHandler(store, storageClient, nil, historySvc)
	userHandler := NewUserHandler(store, 4)
	adminHandler := NewAdminHandler(store, sched, historySvc, cleanupSvc, limiter, 4)

	router := gin.New()
	api := router.Group("/api")
	{
		api.GET("/properties", propertyHandler.GetProperties)
		api.GET("/properties/featured", propertyHandler.GetFeaturedProperties)
		api.GET("/properties/:id", propertyHandler.GetProperty)
		api.GET("/locations", propertyHandler.GetLocations)
		api.GET("/property-types", propertyHandler.GetPropertyTypes)
		api.GET("/search", propertyHandler.Search)
		api.GET("/search/facets", propertyHandler.SearchFacets)
		api.POST("/auth/login", authHandler.Login)
	}

	admin := api.Group("/admin", authHandler.RequireAuth())
	{
		admin.GET("/me", authHandler.Me)
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/changes", adminHandler.GetRecentChanges)
		admin.POST("/properties", propertyHandler.CreateProperty)
		admin.PUT("/properties/:id", propertyHandler.UpdateProperty)
		admin.DELETE("/properties/:id", propertyHandler.DeleteProperty)
		admin.PUT("/properties/:id/images/:imageId/primary", propertyHandler.SetPrimaryImage)
		admin.GET("/users", userHandler.ListUsers)
		admin.POST("/users", userHandler.CreateUser)
		admin.POST("/maintenance/passwords", adminHandler.MigratePasswords)
	}

	return &testEnv{store: store, router: router, tokens: tokens}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedAdmin(t *testing.T) string {
	t.Helper()
	user := &models.User{
		Username: "admin",
		Password: "correct-horse-battery",
		Name:     "Admin",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	require.NoError(t, e.store.CreateUser(user, 4))

	token, err := e.tokens.Issue(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) seedProperty(t *testing.T, name, location string, price float64) *models.Property {
	t.Helper()
	p := &models.Property{
		Name:         name,
		PropertyType: "Villa",
		Type:         "sale",
		Location:     location,
		Price:        price,
	}
	require.NoError(t, e.store.CreateProperty(p))
	return p
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	w := env.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "admin",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["token"])

	// wrong password and unknown user answer identically
	wrong := env.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "admin",
		"password": "nope",
	})
	unknown := env.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "ghost",
		"password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodGet, "/api/admin/stats", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetPropertiesAppliesCriteria(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Kamala Villa", "Kamala", 25_000_000)
	env.seedProperty(t, "Patong Condo", "Patong", 8_000_000)

	w := env.request(t, http.MethodGet, "/api/properties", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["count"])

	// sold listings stay in the catalog; status is shown, not hidden
	sold := env.seedProperty(t, "Sold Villa", "Kamala", 30_000_000)
	_, err := env.store.UpdateProperty(sold.ID, map[string]interface{}{
		"status": string(models.PropertyStatusSold),
	})
	require.NoError(t, err)

	w = env.request(t, http.MethodGet, "/api/properties", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeBody(t, w)["count"])
	assert.Contains(t, w.Body.String(), "Sold Villa")

	w = env.request(t, http.MethodGet, "/api/properties?location=Kamala", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["count"])

	w = env.request(t, http.MethodGet, "/api/properties?minPrice=20000000&maxPrice=100000000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["count"])

	w = env.request(t, http.MethodGet, "/api/properties?search=patong", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
}

func TestPropertyCRUDThroughAPI(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedAdmin(t)

	w := env.request(t, http.MethodPost, "/api/admin/properties", token, gin.H{
		"name":          "New Villa",
		"property_type": "Villa",
		"type":          "sale",
		"location":      "Rawai",
		"price":         15_000_000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)
	id := created["id"].(string)
	require.NotEmpty(t, id)

	w = env.request(t, http.MethodGet, "/api/properties/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPut, "/api/admin/properties/"+id, token, gin.H{
		"price": 16_000_000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(16_000_000), decodeBody(t, w)["price"])

	// the edit left a change row behind
	w = env.request(t, http.MethodGet, "/api/admin/changes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, decodeBody(t, w)["count"], float64(2))

	w = env.request(t, http.MethodDelete, "/api/admin/properties/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/properties/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePropertyValidationSurface(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedAdmin(t)

	w := env.request(t, http.MethodPost, "/api/admin/properties", token, gin.H{
		"property_type": "Villa",
		"type":          "sale",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decodeBody(t, w)["field"])
}

func TestSetPrimaryImageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedAdmin(t)
	p := env.seedProperty(t, "Villa", "Kamala", 1_000_000)

	a := &models.PropertyImage{PropertyID: p.ID, ImageURL: "u1", IsPrimary: true}
	b := &models.PropertyImage{PropertyID: p.ID, ImageURL: "u2"}
	require.NoError(t, env.store.AddPropertyImage(a))
	require.NoError(t, env.store.AddPropertyImage(b))

	w := env.request(t, http.MethodPut, "/api/admin/properties/"+p.ID+"/images/"+b.ID+"/primary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	images, err := env.store.GetPropertyImages(p.ID)
	require.NoError(t, err)
	primaries := 0
	for _, img := range images {
		if img.IsPrimary {
			primaries++
			assert.Equal(t, b.ID, img.ID)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedAdmin(t)

	w := env.request(t, http.MethodPost, "/api/admin/users", token, gin.H{
		"username": "editor1",
		"password": "editor-password",
		"name":     "Editor One",
		"role":     "editor",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodGet, "/api/admin/users?role=editor", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	// password never appears in responses
	assert.NotContains(t, w.Body.String(), "editor-password")
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestMigratePasswordsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedAdmin(t)

	legacy := &models.User{
		Username: "legacy",
		Password: "placeholder-pw",
		Name:     "Legacy",
		IsActive: true,
	}
	require.NoError(t, env.store.CreateUser(legacy, 4))
	require.NoError(t, env.store.DB().Model(&models.User{}).
		Where("id = ?", legacy.ID).Update("password", "plain-secret").Error)

	w := env.request(t, http.MethodPost, "/api/admin/maintenance/passwords", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["count"])

	_, err := env.store.Authenticate("legacy", "plain-secret")
	require.NoError(t, err)
}

func TestStatsIncludesRecentUsers(t *testing.T) {
	env := newTestEnv(t)
	token := env.seedAdmin(t)

	// a login stamps last_login, which puts the account in recent_users
	w := env.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "admin",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	recent, ok := body["recent_users"].([]interface{})
	require.True(t, ok)
	require.Len(t, recent, 1)
	assert.Contains(t, w.Body.String(), `"username":"admin"`)
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.seedProperty(t, "Kamala Villa", "Kamala", 25_000_000)
	env.seedProperty(t, "Patong Condo", "Patong", 8_000_000)
	sold := env.seedProperty(t, "Sold Kamala House", "Kamala", 9_000_000)
	_, err := env.store.UpdateProperty(sold.ID, map[string]interface{}{
		"status": string(models.PropertyStatusSold),
	})
	require.NoError(t, err)

	// the database path serves only available listings
	w := env.request(t, http.MethodGet, "/api/search?q=kamala", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = env.request(t, http.MethodGet, "/api/search?location=Patong", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = env.request(t, http.MethodGet, "/api/search?minPrice=0&maxPrice=10000000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
	assert.Contains(t, w.Body.String(), "Patong Condo")
}

func TestSearchFacetsUnavailableWithoutEngine(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/search/facets", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFeaturedEndpoint(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProperty(t, "Featured Villa", "Kamala", 1_000_000)
	_, err := env.store.UpdateProperty(p.ID, map[string]interface{}{"featured": true})
	require.NoError(t, err)
	env.seedProperty(t, "Plain Villa", "Kamala", 1_000_000)

	w := env.request(t, http.MethodGet, "/api/properties/featured", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
}
