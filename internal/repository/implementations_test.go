package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.RecommendationQuery{},
		&models.PopularQuery{},
		&models.SystemHealth{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestRecommendationQueryRepository(t *testing.T) {
	repo := NewRecommendationQueryRepository(testDB(t))
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&models.RecommendationQuery{
			UserID:       1,
			QueryText:    fmt.Sprintf("query %d", i),
			ResultsCount: 10,
			RequestedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(&models.RecommendationQuery{UserID: 2, QueryText: "other"}))

	byUser, err := repo.GetByUser(1, 2)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "query 2", byUser[0].QueryText)
	assert.Equal(t, "query 1", byUser[1].QueryText)

	other, err := repo.GetByUser(2, 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "other", other[0].QueryText)

	same := time.Now()
	for _, q := range []string{"first", "second"} {
		require.NoError(t, repo.Create(&models.RecommendationQuery{UserID: 3, QueryText: q, RequestedAt: same}))
	}
	tied, err := repo.GetByUser(3, 10)
	require.NoError(t, err)
	require.Len(t, tied, 2)
	assert.Equal(t, "second", tied[0].QueryText)

	err = repo.Create(&models.RecommendationQuery{UserID: 0})
	assert.Error(t, err)
}

func TestPopularQueryRepository(t *testing.T) {
	repo := NewPopularQueryRepository(testDB(t))

	require.NoError(t, repo.IncrementCount("space adventure"))
	require.NoError(t, repo.UpdateStats("space adventure", 10, 100))
	require.NoError(t, repo.IncrementCount("space adventure"))
	require.NoError(t, repo.UpdateStats("space adventure", 4, 300))
	require.NoError(t, repo.IncrementCount("romcom"))
	require.NoError(t, repo.UpdateStats("romcom", 10, 50))

	top, err := repo.GetTop(5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "space adventure", top[0].QueryText)
	assert.Equal(t, 2, top[0].SearchCount)
	assert.InDelta(t, 7.0, top[0].AvgResultsCount, 1e-9)
	assert.Equal(t, 200, top[0].AvgResponseTimeMs)
	assert.Equal(t, 1, top[1].SearchCount)
}

func TestSystemHealthRepository(t *testing.T) {
	db := testDB(t)
	repo := NewSystemHealthRepository(db)

	require.NoError(t, repo.UpdateServiceHealth("similarity", "healthy", 12, ""))
	require.NoError(t, repo.UpdateServiceHealth("redis", "disabled", 0, ""))
	require.NoError(t, repo.UpdateServiceHealth("similarity", "unhealthy", 0, "connection refused"))

	var rows []models.SystemHealth
	require.NoError(t, db.Where("service_name = ?", "similarity").Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "healthy", rows[0].Status)
	assert.Equal(t, "unhealthy", rows[1].Status)
	assert.Equal(t, "connection refused", rows[1].ErrorMessage)
	assert.False(t, rows[1].CheckedAt.IsZero())

	assert.Error(t, repo.UpdateServiceHealth("similarity", "sleepy", 0, ""))
}
