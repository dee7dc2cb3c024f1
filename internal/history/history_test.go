package history

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phuket-estate/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PropertyChange{}))
	return NewService(db)
}

func TestDetectChanges(t *testing.T) {
	old := &models.Property{
		ID:     "p-1",
		Name:   "Old Name",
		Type:   "sale",
		Status: models.PropertyStatusAvailable,
		Price:  10_000_000,
	}
	updated := &models.Property{
		ID:       "p-1",
		Name:     "New Name",
		Type:     "rent",
		Status:   models.PropertyStatusSold,
		Price:    12_000_000,
		Featured: true,
	}

	changes := DetectChanges(old, updated)
	require.Len(t, changes, 5)

	byType := map[string]models.PropertyChange{}
	for _, c := range changes {
		byType[c.ChangeType] = c
	}

	price := byType[models.ChangeTypePrice]
	assert.Equal(t, "10000000.00", price.OldValue)
	assert.Equal(t, "12000000.00", price.NewValue)
	require.NotNil(t, price.ChangeMagnitude)
	assert.Equal(t, 2_000_000.0, *price.ChangeMagnitude)

	assert.Equal(t, "Available", byType[models.ChangeTypeStatus].OldValue)
	assert.Equal(t, "Sold", byType[models.ChangeTypeStatus].NewValue)
	assert.Equal(t, "true", byType[models.ChangeTypeFeatured].NewValue)
	assert.Equal(t, "rent", byType[models.ChangeTypeFormat].NewValue)
	assert.Equal(t, "New Name", byType[models.ChangeTypeName].NewValue)
}

func TestDetectChangesNoDifference(t *testing.T) {
	p := &models.Property{ID: "p-1", Name: "Same", Price: 1}
	assert.Empty(t, DetectChanges(p, p))
}

func TestRecordAndQueryChanges(t *testing.T) {
	svc := newTestService(t)

	p := &models.Property{ID: "p-1", Name: "Villa", Price: 10_000_000}
	require.NoError(t, svc.RecordCreation(p))

	updated := *p
	updated.Price = 11_000_000
	require.NoError(t, svc.RecordUpdate(p, &updated))

	other := &models.Property{ID: "p-2", Name: "Condo"}
	require.NoError(t, svc.RecordRemoval(other))

	recent, err := svc.GetRecentChanges(10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	forOne, err := svc.GetPropertyChanges("p-1", 0)
	require.NoError(t, err)
	require.Len(t, forOne, 2)
	for _, c := range forOne {
		assert.Equal(t, "p-1", c.PropertyID)
	}
}

func TestRecordUpdateWithNoChangesWritesNothing(t *testing.T) {
	svc := newTestService(t)
	p := &models.Property{ID: "p-1", Name: "Villa", Price: 1}
	require.NoError(t, svc.RecordUpdate(p, p))

	recent, err := svc.GetRecentChanges(0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
