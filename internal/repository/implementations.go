package repository

import (
	"time"

	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecommendationQueryRepositoryImpl implements RecommendationQueryRepository
type RecommendationQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewRecommendationQueryRepository(db *gorm.DB) models.RecommendationQueryRepository {
	return &RecommendationQueryRepositoryImpl{db: db}
}

func (r *RecommendationQueryRepositoryImpl) Create(query *models.RecommendationQuery) error {
	if query.RequestedAt.IsZero() {
		query.RequestedAt = time.Now()
	}
	return r.db.Create(query).Error
}

func (r *RecommendationQueryRepositoryImpl) GetByUser(userID int, limit int) ([]models.RecommendationQuery, error) {
	var queries []models.RecommendationQuery
	err := r.db.Where("user_id = ?", userID).
		Order("requested_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&queries).Error
	return queries, err
}

// PopularQueryRepositoryImpl implements PopularQueryRepository
type PopularQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewPopularQueryRepository(db *gorm.DB) models.PopularQueryRepository {
	return &PopularQueryRepositoryImpl{db: db}
}

// IncrementCount upserts on query_text. The ON CONFLICT form works on both
// Postgres and SQLite.
func (r *PopularQueryRepositoryImpl) IncrementCount(queryText string) error {
	now := time.Now()
	row := models.PopularQuery{
		QueryText:    queryText,
		SearchCount:  1,
		LastSearched: now,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "query_text"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"search_count":  gorm.Expr("popular_queries.search_count + 1"),
			"last_searched": now,
			"updated_at":    now,
		}),
	}).Create(&row).Error
}

func (r *PopularQueryRepositoryImpl) GetTop(limit int) ([]models.PopularQuery, error) {
	var queries []models.PopularQuery
	err := r.db.Order("search_count DESC").
		Order("query_text").
		Limit(limit).
		Find(&queries).Error
	return queries, err
}

// UpdateStats folds one more observation into the running averages. It must
// run after IncrementCount for the same query.
func (r *PopularQueryRepositoryImpl) UpdateStats(queryText string, resultsCount float64, responseTime int) error {
	return r.db.Model(&models.PopularQuery{}).
		Where("query_text = ?", queryText).
		Updates(map[string]interface{}{
			"avg_results_count":    gorm.Expr("(avg_results_count * (search_count - 1) + ?) / search_count", resultsCount),
			"avg_response_time_ms": gorm.Expr("(avg_response_time_ms * (search_count - 1) + ?) / search_count", responseTime),
			"updated_at":           time.Now(),
		}).Error
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Create(&models.SystemHealth{
		ServiceName:    serviceName,
		Status:         status,
		ResponseTimeMs: responseTime,
		ErrorMessage:   errorMsg,
		CheckedAt:      time.Now(),
	}).Error
}
