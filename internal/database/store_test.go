package database

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phuket-estate/internal/auth"
	"phuket-estate/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := NewStoreFromDB(db)
	require.NoError(t, store.InitSchema())
	return store
}

func seedProperty(t *testing.T, s *Store, name string, price float64, mutate func(*models.Property)) *models.Property {
	t.Helper()
	p := &models.Property{
		Name:         name,
		PropertyType: "Villa",
		Type:         "sale",
		Location:     "Kamala",
		Price:        price,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, s.CreateProperty(p))
	return p
}

func TestCreateAndGetProperty(t *testing.T) {
	store := newTestStore(t)

	created := seedProperty(t, store, "Kamala Sea View Villa", 25_000_000, func(p *models.Property) {
		p.PropertyCode = "VS-101"
		p.Bedrooms = 4
		p.Bathrooms = 3
	})
	require.NotEmpty(t, created.ID)

	got, err := store.GetPropertyByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kamala Sea View Villa", got.Name)
	assert.Equal(t, "VS-101", got.PropertyCode)
	assert.Equal(t, models.PropertyStatusAvailable, got.Status)

	_, err = store.GetPropertyByID("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePropertyValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name   string
		mutate func(*models.Property)
		field  string
	}{
		{"missing name", func(p *models.Property) { p.Name = "  " }, "name"},
		{"missing property type", func(p *models.Property) { p.PropertyType = "" }, "property_type"},
		{"missing format", func(p *models.Property) { p.Type = "" }, "type"},
		{"negative price", func(p *models.Property) { p.Price = -1 }, "price"},
		{"negative bedrooms", func(p *models.Property) { p.Bedrooms = -1 }, "rooms"},
		{"unknown status", func(p *models.Property) { p.Status = "Pending" }, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Property{
				Name:         "Test Villa",
				PropertyType: "Villa",
				Type:         "sale",
				Price:        1_000_000,
			}
			tt.mutate(p)

			err := store.CreateProperty(p)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestUpdateProperty(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Patong Condo", 8_000_000, nil)

	updated, err := store.UpdateProperty(p.ID, map[string]interface{}{
		"price":  9_500_000.0,
		"status": string(models.PropertyStatusSold),
	})
	require.NoError(t, err)
	assert.Equal(t, 9_500_000.0, updated.Price)
	assert.Equal(t, models.PropertyStatusSold, updated.Status)

	_, err = store.UpdateProperty("no-such-id", map[string]interface{}{"price": 1.0})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePropertyWritesLogAndReturnsImagePaths(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Rawai Townhouse", 5_000_000, func(p *models.Property) {
		p.PropertyCode = "TH-7"
	})

	for i, path := range []string{"properties/x/1.jpg", "properties/x/2.jpg"} {
		img := &models.PropertyImage{
			PropertyID:   p.ID,
			ImageURL:     "https://cdn.example.com/" + path,
			ImagePath:    path,
			DisplayOrder: i,
		}
		require.NoError(t, store.AddPropertyImage(img))
	}

	paths, err := store.DeleteProperty(p.ID, "admin")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"properties/x/1.jpg", "properties/x/2.jpg"}, paths)

	_, err = store.GetPropertyByID(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	images, err := store.GetPropertyImages(p.ID)
	require.NoError(t, err)
	assert.Empty(t, images)

	var logs []models.DeleteLog
	require.NoError(t, store.DB().Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, p.ID, logs[0].PropertyID)
	assert.Equal(t, models.DeleteReasonManual, logs[0].Reason)
	assert.Equal(t, "admin", logs[0].DeletedBy)

	_, err = store.DeleteProperty("no-such-id", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchPropertiesReturnsOnlyAvailable(t *testing.T) {
	store := newTestStore(t)
	seedProperty(t, store, "Available Villa", 10_000_000, nil)
	seedProperty(t, store, "Sold Villa", 12_000_000, func(p *models.Property) {
		p.Status = models.PropertyStatusSold
	})
	seedProperty(t, store, "Cheap Condo", 3_000_000, func(p *models.Property) {
		p.PropertyType = "Condo"
		p.Location = "Patong"
		p.Type = "rent"
	})

	results, err := store.SearchProperties(PropertyFilters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, p := range results {
		assert.Equal(t, models.PropertyStatusAvailable, p.Status)
	}

	min := 5_000_000.0
	results, err = store.SearchProperties(PropertyFilters{MinPrice: &min})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Available Villa", results[0].Name)

	results, err = store.SearchProperties(PropertyFilters{Location: "Patong", Format: "RENT"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Cheap Condo", results[0].Name)

	results, err = store.SearchProperties(PropertyFilters{SearchTerm: "cheap"})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestGetFeaturedProperties(t *testing.T) {
	store := newTestStore(t)
	seedProperty(t, store, "Plain Villa", 10_000_000, nil)
	seedProperty(t, store, "Featured Villa", 20_000_000, func(p *models.Property) {
		p.Featured = true
	})
	seedProperty(t, store, "Featured But Sold", 30_000_000, func(p *models.Property) {
		p.Featured = true
		p.Status = models.PropertyStatusSold
	})

	featured, err := store.GetFeaturedProperties()
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "Featured Villa", featured[0].Name)
}

func TestGetLocationsAndTypes(t *testing.T) {
	store := newTestStore(t)
	seedProperty(t, store, "A", 1, func(p *models.Property) { p.Location = "Kamala" })
	seedProperty(t, store, "B", 2, func(p *models.Property) { p.Location = "Patong"; p.PropertyType = "Condo" })
	seedProperty(t, store, "C", 3, func(p *models.Property) { p.Location = "Kamala" })
	seedProperty(t, store, "D", 4, func(p *models.Property) { p.Location = "" })

	locations, err := store.GetLocations()
	require.NoError(t, err)
	assert.Equal(t, []string{"Kamala", "Patong"}, locations)

	types, err := store.GetPropertyTypes()
	require.NoError(t, err)
	assert.Equal(t, []string{"Condo", "Villa"}, types)
}

func TestGetPropertyStats(t *testing.T) {
	store := newTestStore(t)
	seedProperty(t, store, "A", 1, nil)
	seedProperty(t, store, "B", 2, func(p *models.Property) { p.Status = models.PropertyStatusSold })
	seedProperty(t, store, "C", 3, func(p *models.Property) {
		p.Status = models.PropertyStatusRented
		p.PropertyType = "Condo"
		p.Location = "Patong"
	})

	stats, err := store.GetPropertyStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Available)
	assert.Equal(t, int64(1), stats.Sold)
	assert.Equal(t, int64(1), stats.Rented)
	assert.Equal(t, int64(2), stats.ByType["Villa"])
	assert.Equal(t, int64(1), stats.ByType["Condo"])
	assert.Equal(t, int64(1), stats.ByLocation["Patong"])
}

func seedImage(t *testing.T, s *Store, propertyID string, order int, primary bool) *models.PropertyImage {
	t.Helper()
	img := &models.PropertyImage{
		PropertyID:   propertyID,
		ImageURL:     "https://cdn.example.com/img.jpg",
		ImagePath:    "properties/p/img.jpg",
		IsPrimary:    primary,
		DisplayOrder: order,
	}
	require.NoError(t, s.AddPropertyImage(img))
	return img
}

func countPrimaries(t *testing.T, s *Store, propertyID string) int {
	t.Helper()
	images, err := s.GetPropertyImages(propertyID)
	require.NoError(t, err)
	n := 0
	for _, img := range images {
		if img.IsPrimary {
			n++
		}
	}
	return n
}

func TestAddPropertyImage(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Villa", 1_000_000, nil)

	img := seedImage(t, store, p.ID, 0, false)
	assert.NotEmpty(t, img.ID)

	err := store.AddPropertyImage(&models.PropertyImage{
		PropertyID: "no-such-property",
		ImageURL:   "https://cdn.example.com/x.jpg",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.AddPropertyImage(&models.PropertyImage{PropertyID: p.ID})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image_url", verr.Field)
}

func TestAddPrimaryImageDemotesOthers(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Villa", 1_000_000, nil)

	first := seedImage(t, store, p.ID, 0, true)
	seedImage(t, store, p.ID, 1, true)

	assert.Equal(t, 1, countPrimaries(t, store, p.ID))

	got, err := store.GetPropertyImage(first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPrimary)
}

func TestSetPrimaryImage(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Villa", 1_000_000, nil)
	a := seedImage(t, store, p.ID, 0, true)
	b := seedImage(t, store, p.ID, 1, false)
	c := seedImage(t, store, p.ID, 2, false)

	require.NoError(t, store.SetPrimaryImage(b.ID, p.ID))

	assert.Equal(t, 1, countPrimaries(t, store, p.ID))
	got, err := store.GetPropertyImage(b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)

	// repeating on another image keeps exactly one primary
	require.NoError(t, store.SetPrimaryImage(c.ID, p.ID))
	assert.Equal(t, 1, countPrimaries(t, store, p.ID))

	// wrong property id pairing leaves state untouched
	other := seedProperty(t, store, "Other", 2_000_000, nil)
	err = store.SetPrimaryImage(a.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, countPrimaries(t, store, p.ID))
}

func TestReassignPrimaryAfterDeletingIt(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Villa", 1_000_000, nil)
	primary := seedImage(t, store, p.ID, 0, true)
	rest := seedImage(t, store, p.ID, 1, false)

	_, err := store.DeletePropertyImage(primary.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, countPrimaries(t, store, p.ID))

	require.NoError(t, store.SetPrimaryImage(rest.ID, p.ID))
	assert.Equal(t, 1, countPrimaries(t, store, p.ID))
}

func TestDeletePropertyImage(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Villa", 1_000_000, nil)
	img := seedImage(t, store, p.ID, 0, false)

	removed, err := store.DeletePropertyImage(img.ID)
	require.NoError(t, err)
	assert.Equal(t, "properties/p/img.jpg", removed.ImagePath)

	_, err = store.DeletePropertyImage(img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateImageOrder(t *testing.T) {
	store := newTestStore(t)
	p := seedProperty(t, store, "Villa", 1_000_000, nil)
	a := seedImage(t, store, p.ID, 0, false)
	b := seedImage(t, store, p.ID, 1, false)

	require.NoError(t, store.UpdateImageOrder(p.ID, []string{b.ID, a.ID}))

	images, err := store.GetPropertyImages(p.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, b.ID, images[0].ID)
	assert.Equal(t, a.ID, images[1].ID)
}

func seedUser(t *testing.T, s *Store, username, password string, mutate func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Password: password,
		Name:     "Test User",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, s.CreateUser(u, 4))
	return u
}

func TestCreateUserHashesPassword(t *testing.T) {
	store := newTestStore(t)
	u := seedUser(t, store, "somchai", "correct-horse-battery", nil)

	assert.True(t, auth.IsBcryptHash(u.Password))

	err := store.CreateUser(&models.User{
		Username: "somchai",
		Password: "another-password",
		Name:     "Duplicate",
	}, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username", verr.Field)
}

func TestAuthenticate(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "somchai", "correct-horse-battery", nil)
	seedUser(t, store, "dormant", "correct-horse-battery", func(u *models.User) {
		u.IsActive = false
	})

	user, err := store.Authenticate("somchai", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, "somchai", user.Username)
	require.NotNil(t, user.LastLogin)
	assert.WithinDuration(t, time.Now(), *user.LastLogin, 5*time.Second)

	// unknown user, wrong password and inactive account are indistinguishable
	_, err = store.Authenticate("nobody", "correct-horse-battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Authenticate("somchai", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Authenticate("dormant", "correct-horse-battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsLegacyCredential(t *testing.T) {
	store := newTestStore(t)
	u := seedUser(t, store, "legacy", "placeholder-password", nil)
	// simulate an un-migrated account holding a plaintext credential
	require.NoError(t, store.DB().Model(&models.User{}).
		Where("id = ?", u.ID).Update("password", "plain-secret").Error)

	_, err := store.Authenticate("legacy", "plain-secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMigrateLegacyPasswords(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "modern", "already-hashed-pw", nil)
	plain := seedUser(t, store, "plain", "placeholder-password", nil)
	encoded := seedUser(t, store, "encoded", "placeholder-password", nil)

	require.NoError(t, store.DB().Model(&models.User{}).
		Where("id = ?", plain.ID).Update("password", "plain-secret").Error)
	require.NoError(t, store.DB().Model(&models.User{}).
		Where("id = ?", encoded.ID).
		Update("password", base64.StdEncoding.EncodeToString([]byte("encoded-secret"))).Error)

	migrated, err := store.MigrateLegacyPasswords(4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"plain", "encoded"}, migrated)

	_, err = store.Authenticate("plain", "plain-secret")
	require.NoError(t, err)
	_, err = store.Authenticate("encoded", "encoded-secret")
	require.NoError(t, err)
	_, err = store.Authenticate("modern", "already-hashed-pw")
	require.NoError(t, err)

	// second run finds nothing left to migrate
	migrated, err = store.MigrateLegacyPasswords(4)
	require.NoError(t, err)
	assert.Empty(t, migrated)
}

func TestResetPassword(t *testing.T) {
	store := newTestStore(t)
	u := seedUser(t, store, "somchai", "old-password-123", nil)

	err := store.ResetPassword(u.ID, "short", 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, store.ResetPassword(u.ID, "new-password-456", 4))

	_, err = store.Authenticate("somchai", "old-password-123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = store.Authenticate("somchai", "new-password-456")
	require.NoError(t, err)
}

func TestToggleUserStatus(t *testing.T) {
	store := newTestStore(t)
	u := seedUser(t, store, "somchai", "correct-horse-battery", nil)

	toggled, err := store.ToggleUserStatus(u.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	toggled, err = store.ToggleUserStatus(u.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
}

func TestSearchUsers(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "somchai", "correct-horse-battery", func(u *models.User) {
		u.Name = "Somchai J"
	})
	seedUser(t, store, "malee", "correct-horse-battery", func(u *models.User) {
		u.Name = "Malee K"
		u.Role = models.RoleEditor
		u.IsActive = false
	})

	users, err := store.SearchUsers(UserFilters{SearchTerm: "som"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "somchai", users[0].Username)

	users, err = store.SearchUsers(UserFilters{Role: "editor"})
	require.NoError(t, err)
	require.Len(t, users, 1)

	active := true
	users, err = store.SearchUsers(UserFilters{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "somchai", users[0].Username)
}

func TestGetRecentActiveUsers(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "fresh", "correct-horse-battery", nil)
	seedUser(t, store, "inactive", "correct-horse-battery", func(u *models.User) {
		u.IsActive = false
	})
	seedUser(t, store, "never-logged-in", "correct-horse-battery", nil)

	// only a successful login sets last_login
	_, err := store.Authenticate("fresh", "correct-horse-battery")
	require.NoError(t, err)

	users, err := store.GetRecentActiveUsers(time.Hour)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "fresh", users[0].Username)

	// a login outside the window drops out
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.DB().Model(&models.User{}).
		Where("username = ?", "fresh").Update("last_login", old).Error)

	users, err = store.GetRecentActiveUsers(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGetUserStats(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "a", "correct-horse-battery", nil)
	seedUser(t, store, "b", "correct-horse-battery", func(u *models.User) {
		u.Role = models.RoleEditor
		u.IsActive = false
	})

	stats, err := store.GetUserStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Inactive)
	assert.Equal(t, int64(1), stats.ByRole["admin"])
	assert.Equal(t, int64(1), stats.ByRole["editor"])
}

func TestUpdateUserIgnoresPasswordKey(t *testing.T) {
	store := newTestStore(t)
	u := seedUser(t, store, "somchai", "correct-horse-battery", nil)

	updated, err := store.UpdateUser(u.ID, map[string]interface{}{
		"name":     "Renamed",
		"password": "sneaky-direct-write",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	// credential still works, the raw write never happened
	_, err = store.Authenticate("somchai", "correct-horse-battery")
	require.NoError(t, err)

	_, err = store.UpdateUser(u.ID, map[string]interface{}{"role": "owner"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)
}
