package models

// GORM models for recommendation analytics. Catalog and feedback data stay in
// flat files; these tables only describe how the service is used.

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecommendationQuery records one served recommendation request
type RecommendationQuery struct {
	BaseModel
	UserID         int       `json:"user_id" gorm:"index;not null"`
	QueryText      string    `json:"query_text"`
	RequestID      string    `json:"request_id" gorm:"index"`
	ResultsCount   int       `json:"results_count" gorm:"default:0"`
	TopMovieID     int       `json:"top_movie_id"`
	Personalized   bool      `json:"personalized"`
	Degraded       bool      `json:"degraded"`
	CacheHit       bool      `json:"cache_hit"`
	WeightPrompt   float64   `json:"weight_prompt"`
	WeightUser     float64   `json:"weight_user_profile"`
	WeightRating   float64   `json:"weight_rating"`
	WeightGenre    float64   `json:"weight_genre"`
	WeightYear     float64   `json:"weight_year"`
	RequestedAt    time.Time `json:"requested_at" gorm:"index"`
	ResponseTimeMs int       `json:"response_time_ms"`
	UserAgent      string    `json:"user_agent"`
	IPAddress      string    `json:"ip_address"`
}

// PopularQuery represents frequently requested free-text queries
type PopularQuery struct {
	BaseModel
	QueryText         string    `json:"query_text" gorm:"uniqueIndex;not null"`
	SearchCount       int       `json:"search_count" gorm:"default:1"`
	AvgResultsCount   float64   `json:"avg_results_count" gorm:"default:0"`
	AvgResponseTimeMs int       `json:"avg_response_time_ms" gorm:"default:0"`
	LastSearched      time.Time `json:"last_searched"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"index;not null"`
	Status         string    `json:"status" gorm:"not null"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"index"`
}

// Database interfaces for repository pattern
type RecommendationQueryRepository interface {
	Create(query *RecommendationQuery) error
	GetByUser(userID int, limit int) ([]RecommendationQuery, error)
}

type PopularQueryRepository interface {
	IncrementCount(queryText string) error
	GetTop(limit int) ([]PopularQuery, error)
	UpdateStats(queryText string, resultsCount float64, responseTime int) error
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
}

// TableName methods for custom table names
func (RecommendationQuery) TableName() string { return "recommendation_queries" }
func (PopularQuery) TableName() string        { return "popular_queries" }
func (SystemHealth) TableName() string        { return "system_health" }

// Model validation methods
func (rq *RecommendationQuery) Validate() error {
	if rq.UserID <= 0 {
		return fmt.Errorf("user ID is required")
	}
	if rq.ResponseTimeMs < 0 {
		return fmt.Errorf("response time cannot be negative")
	}
	return nil
}

func (sh *SystemHealth) Validate() error {
	validStatuses := map[string]bool{
		"healthy":   true,
		"degraded":  true,
		"unhealthy": true,
		"disabled":  true,
	}
	if !validStatuses[sh.Status] {
		return fmt.Errorf("invalid health status: %s", sh.Status)
	}
	return nil
}

// GORM hooks
func (rq *RecommendationQuery) BeforeCreate(tx *gorm.DB) error {
	return rq.Validate()
}

func (sh *SystemHealth) BeforeCreate(tx *gorm.DB) error {
	return sh.Validate()
}
