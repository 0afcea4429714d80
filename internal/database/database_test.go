package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescope/server/internal/models"
	"homescope/server/internal/storage"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(v int) *int { return &v }

func seedProperties(t *testing.T, db *Database) {
	t.Helper()

	batch := []*models.Property{
		{ID: "ref", City: "Naples", Price: 500000, Bedrooms: 3, Bathrooms: 2, SquareFeet: intPtr(2000), PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusActive},
		{ID: "a", City: "Naples", Price: 450000, Bedrooms: 3, Bathrooms: 2, SquareFeet: intPtr(1900), PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusActive},
		{ID: "b", City: "Naples", Price: 610000, Bedrooms: 4, Bathrooms: 3, PropertyType: models.PropertyTypeCondo, Status: models.StatusActive},
		{ID: "c", City: "Naples", Price: 700000, Bedrooms: 3, Bathrooms: 2, PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusActive},
		{ID: "d", City: "Naples", Price: 480000, Bedrooms: 3, Bathrooms: 2, PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusSold},
		{ID: "e", City: "Naples", Price: 520000, Bedrooms: 6, Bathrooms: 4, PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusActive},
		{ID: "f", City: "Bonita Springs", Price: 505000, Bedrooms: 2, Bathrooms: 1.5, PropertyType: models.PropertyTypeTownhouse, Status: models.StatusActive, Photos: []string{"https://img/1.jpg"}},
	}
	require.NoError(t, db.UpsertProperties(context.Background(), batch))
}

func TestDatabase_GetProperty(t *testing.T) {
	db := setupTestDB(t)
	seedProperties(t, db)

	p, err := db.GetProperty(context.Background(), "f")
	require.NoError(t, err)
	assert.Equal(t, "Bonita Springs", p.City)
	assert.Equal(t, 1.5, p.Bathrooms)
	assert.Equal(t, []string{"https://img/1.jpg"}, p.Photos)

	_, err = db.GetProperty(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDatabase_FindCandidates(t *testing.T) {
	db := setupTestDB(t)
	seedProperties(t, db)
	ctx := context.Background()

	tests := []struct {
		name     string
		criteria models.CandidateCriteria
		expected []string
	}{
		{
			name: "city and bands with active status",
			criteria: models.CandidateCriteria{
				City: "Naples", MinPrice: 375000, MaxPrice: 625000,
				MinBedrooms: 2, MaxBedrooms: 4,
				Statuses:   []models.Status{models.StatusActive},
				ExcludeIDs: []string{"ref"},
				Limit:      10,
			},
			expected: []string{"a", "b"},
		},
		{
			name: "no status filter includes sold",
			criteria: models.CandidateCriteria{
				City: "Naples", MinPrice: 375000, MaxPrice: 625000,
				MinBedrooms: 2, MaxBedrooms: 4,
				ExcludeIDs: []string{"ref"},
				Limit:      10,
			},
			expected: []string{"a", "d", "b"},
		},
		{
			name: "no city constraint",
			criteria: models.CandidateCriteria{
				MinPrice: 375000, MaxPrice: 625000,
				MinBedrooms: 2, MaxBedrooms: 4,
				Statuses:   []models.Status{models.StatusActive},
				ExcludeIDs: []string{"ref", "a"},
				Limit:      10,
			},
			expected: []string{"f", "b"},
		},
		{
			name: "limit applies after price ordering",
			criteria: models.CandidateCriteria{
				City: "Naples", MinPrice: 0, MaxPrice: 1000000,
				MinBedrooms: 0, MaxBedrooms: 10,
				Limit: 2,
			},
			expected: []string{"a", "d"},
		},
		{
			name:     "zero limit",
			criteria: models.CandidateCriteria{City: "Naples", MaxPrice: 1000000, MaxBedrooms: 10},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.FindCandidates(ctx, tt.criteria)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestDatabase_CreateProperty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := &models.Property{City: "Naples", Price: 300000, Bedrooms: 2, Bathrooms: 2, PropertyType: models.PropertyTypeCondo, Status: models.StatusActive}
	require.NoError(t, db.CreateProperty(ctx, p))
	assert.NotEmpty(t, p.ID)

	dup := &models.Property{ID: p.ID, City: "Naples", Price: 1, Bedrooms: 1, PropertyType: models.PropertyTypeCondo, Status: models.StatusActive}
	assert.ErrorIs(t, db.CreateProperty(ctx, dup), storage.ErrDuplicateKey)

	invalid := &models.Property{City: "Naples", Price: 1, PropertyType: "castle", Status: models.StatusActive}
	assert.ErrorIs(t, db.CreateProperty(ctx, invalid), models.ErrInvalidProperty)
}

func TestDatabase_UpsertReplacesExisting(t *testing.T) {
	db := setupTestDB(t)
	seedProperties(t, db)
	ctx := context.Background()

	updated := &models.Property{ID: "a", City: "Naples", Price: 455000, Bedrooms: 3, Bathrooms: 2, PropertyType: models.PropertyTypeSingleFamily, Status: models.StatusPending}
	require.NoError(t, db.UpsertProperties(ctx, []*models.Property{updated}))

	p, err := db.GetProperty(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(455000), p.Price)
	assert.Equal(t, models.StatusPending, p.Status)
}

func TestDatabase_ListProperties(t *testing.T) {
	db := setupTestDB(t)
	seedProperties(t, db)

	props, err := db.ListProperties(context.Background(), models.ListFilter{City: "naples", Status: models.StatusActive, Limit: 3})
	require.NoError(t, err)
	require.Len(t, props, 3)
	assert.Equal(t, "a", props[0].ID)
	assert.True(t, props[0].Price <= props[1].Price)
	assert.NoError(t, db.Ping(context.Background()))
}
