package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iwhizerd/Movie-recomendator/internal/catalog"
	"github.com/iwhizerd/Movie-recomendator/internal/database"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/profile"
	"github.com/iwhizerd/Movie-recomendator/internal/repository"
	"github.com/iwhizerd/Movie-recomendator/internal/scoring"
	"github.com/sirupsen/logrus"
)

const (
	maxQueryLength = 2000
	maxTopN        = 100
	maxListLimit   = 50
)

// ErrAnalyticsDisabled is returned by analytics reads when no database is configured.
var ErrAnalyticsDisabled = errors.New("analytics disabled")

// FeedbackStore is the persistence the service needs for feedback.
type FeedbackStore interface {
	Upsert(ctx context.Context, r models.FeedbackRecord) error
	HistoryFor(ctx context.Context, userID int) ([]models.FeedbackRecord, error)
	Digest(ctx context.Context, userID int) (string, error)
}

// ResultCache stores ranked lists and popular queries between requests.
// *database.Cache implements it; a disabled cache reports Enabled false.
type ResultCache interface {
	Enabled() bool
	GetCachedRecommendations(ctx context.Context, key string, result interface{}) error
	CacheRecommendations(ctx context.Context, userID int, key string, value interface{}, expiration time.Duration) error
	InvalidateUser(ctx context.Context, userID int) error
	GetCachedPopularQueries(ctx context.Context) ([]models.PopularQuery, error)
	CachePopularQueries(ctx context.Context, queries []models.PopularQuery, expiration time.Duration) error
}

// WeightSource personalizes the default blend for a user.
type WeightSource interface {
	PersonalizedWeights(ctx context.Context, userID int, defaults models.WeightVector) (models.WeightVector, error)
}

// Options configures a RecommendationService.
type Options struct {
	DefaultWeights models.WeightVector
	DefaultTopN    int
	CacheTTL       time.Duration
	Profile        profile.Options
}

// RecommendInput is one ranking request.
type RecommendInput struct {
	UserID       int
	Query        string
	TopN         int
	ExcludeRated bool
	Weights      *models.WeightVector

	RequestID string
	UserAgent string
	IPAddress string
}

// Ranking is the full ranked list for a request, before pagination.
type Ranking struct {
	UserID          int                     `json:"user_id"`
	Query           string                  `json:"query"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Weights         models.WeightVector     `json:"weights"`
	Personalized    bool                    `json:"personalized"`
	Degraded        bool                    `json:"degraded"`
	ColdStart       bool                    `json:"cold_start"`
	Cached          bool                    `json:"-"`
}

type RecommendationService struct {
	catalog  *catalog.Catalog
	engine   *scoring.Engine
	weights  WeightSource
	feedback FeedbackStore
	cache    ResultCache
	repos    *repository.RepositoryManager
	opts     Options
	logger   *logrus.Logger
}

// NewRecommendationService wires the service. cache may be a disabled cache
// and repos may be nil when analytics are off.
func NewRecommendationService(
	cat *catalog.Catalog,
	engine *scoring.Engine,
	weights WeightSource,
	feedback FeedbackStore,
	cache ResultCache,
	repos *repository.RepositoryManager,
	opts Options,
	logger *logrus.Logger,
) *RecommendationService {
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &RecommendationService{
		catalog:  cat,
		engine:   engine,
		weights:  weights,
		feedback: feedback,
		cache:    cache,
		repos:    repos,
		opts:     opts,
		logger:   logger,
	}
}

// Recommend ranks the catalog for one user. Unless the request carries
// explicit weights, the user's personalized weights are used.
func (s *RecommendationService) Recommend(ctx context.Context, in RecommendInput) (*Ranking, error) {
	start := time.Now()

	query := strings.TrimSpace(in.Query)
	if in.UserID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive, got %d", models.ErrInvalidInput, in.UserID)
	}
	if len(query) > maxQueryLength {
		return nil, fmt.Errorf("%w: query too long (max %d characters)", models.ErrInvalidInput, maxQueryLength)
	}
	topN := in.TopN
	if topN == 0 {
		topN = s.opts.DefaultTopN
	}
	if topN < 0 || topN > maxTopN {
		return nil, fmt.Errorf("%w: top_n must be between 1 and %d, got %d", models.ErrInvalidInput, maxTopN, in.TopN)
	}

	history, err := s.feedback.HistoryFor(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}

	weights, personalized, err := s.resolveWeights(ctx, in, len(history) > 0)
	if err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(ctx, in.UserID, query, topN, weights, in.ExcludeRated)
	if cacheKey != "" {
		var cached Ranking
		err := s.cache.GetCachedRecommendations(ctx, cacheKey, &cached)
		switch {
		case err == nil:
			cached.Cached = true
			s.track(in, query, &cached, time.Since(start))
			return &cached, nil
		case !errors.Is(err, database.ErrCacheMiss):
			s.logger.WithError(err).Warn("Failed to read cached recommendations")
		}
	}

	prof := profile.Build(in.UserID, s.catalog.RatingsFor(in.UserID), history, s.catalog, s.opts.Profile)

	candidates := s.catalog.Movies()
	if in.ExcludeRated && len(prof.Rated) > 0 {
		kept := make([]models.Movie, 0, len(candidates))
		for _, m := range candidates {
			if _, rated := prof.Rated[m.ID]; !rated {
				kept = append(kept, m)
			}
		}
		candidates = kept
	}

	result, err := s.engine.Score(ctx, scoring.Request{
		Query:      query,
		UserID:     in.UserID,
		Candidates: candidates,
		Weights:    weights,
		TopN:       topN,
		Profile:    prof,
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_id", in.UserID).Error("Scoring failed")
		return nil, err
	}

	ranking := &Ranking{
		UserID:          in.UserID,
		Query:           query,
		Recommendations: result.Recommendations,
		Weights:         weights,
		Personalized:    personalized,
		Degraded:        result.Degraded,
		ColdStart:       len(history) == 0 && !s.catalog.HasUser(in.UserID),
	}

	// A degraded list is not cached; the next request should try the backend again.
	if cacheKey != "" && !ranking.Degraded {
		if err := s.cache.CacheRecommendations(ctx, in.UserID, cacheKey, ranking, s.opts.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache recommendations")
		}
	}

	s.track(in, query, ranking, time.Since(start))

	s.logger.WithFields(logrus.Fields{
		"user_id":      in.UserID,
		"results":      len(ranking.Recommendations),
		"personalized": personalized,
		"degraded":     ranking.Degraded,
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Recommendations generated")

	return ranking, nil
}

func (s *RecommendationService) resolveWeights(ctx context.Context, in RecommendInput, hasHistory bool) (models.WeightVector, bool, error) {
	if in.Weights != nil {
		if err := in.Weights.Validate(); err != nil {
			return models.WeightVector{}, false, err
		}
		return *in.Weights, false, nil
	}

	w, err := s.weights.PersonalizedWeights(ctx, in.UserID, s.opts.DefaultWeights)
	if err != nil {
		return models.WeightVector{}, false, err
	}
	return w, hasHistory, nil
}

// cacheKey returns "" when caching is off or the feedback digest is unavailable.
func (s *RecommendationService) cacheKey(ctx context.Context, userID int, query string, topN int, w models.WeightVector, excludeRated bool) string {
	if !s.cache.Enabled() {
		return ""
	}
	digest, err := s.feedback.Digest(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to compute feedback digest, skipping cache")
		return ""
	}
	return database.RecommendationKey(userID, fmt.Sprintf("%d|%s", topN, query), w, excludeRated, digest)
}

// SubmitFeedback stores a star rating for a recommended movie and drops the
// user's cached lists.
func (s *RecommendationService) SubmitFeedback(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackRecord, error) {
	movie, ok := s.catalog.Movie(req.MovieID)
	if !ok {
		return nil, fmt.Errorf("%w: movie %d", models.ErrNotFound, req.MovieID)
	}

	record := models.FeedbackRecord{
		UserID:       req.UserID,
		MovieID:      movie.ID,
		Title:        movie.Title,
		SimQuery:     req.SimQuery,
		SimUser:      req.SimUser,
		RatingScaled: req.RatingScaled,
		FinalScore:   req.FinalScore,
		Feedback:     req.Feedback,
	}
	if err := s.feedback.Upsert(ctx, record); err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateUser(ctx, req.UserID); err != nil {
		s.logger.WithError(err).WithField("user_id", req.UserID).Warn("Failed to invalidate cached recommendations")
	}

	return &record, nil
}

// Weights reports the default and personalized blend of a user.
func (s *RecommendationService) Weights(ctx context.Context, userID int) (*models.WeightsResponse, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive, got %d", models.ErrInvalidInput, userID)
	}
	history, err := s.feedback.HistoryFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	w, err := s.weights.PersonalizedWeights(ctx, userID, s.opts.DefaultWeights)
	if err != nil {
		return nil, err
	}
	return &models.WeightsResponse{
		UserID:        userID,
		Defaults:      s.opts.DefaultWeights,
		Personalized:  w,
		FeedbackCount: len(history),
	}, nil
}

// History lists a user's feedback ordered by movie id.
func (s *RecommendationService) History(ctx context.Context, userID int) (*models.HistoryResponse, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive, got %d", models.ErrInvalidInput, userID)
	}
	history, err := s.feedback.HistoryFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(history, func(i, j int) bool { return history[i].MovieID < history[j].MovieID })
	if history == nil {
		history = []models.FeedbackRecord{}
	}
	return &models.HistoryResponse{
		UserID:   userID,
		Feedback: history,
		Total:    len(history),
	}, nil
}

// Popular returns the most requested free-text queries. The cache holds the
// longest list ever served, so any limit can be answered from it.
func (s *RecommendationService) Popular(ctx context.Context, limit int) ([]models.PopularQuery, error) {
	if s.repos == nil {
		return nil, ErrAnalyticsDisabled
	}
	limit = listLimit(limit)

	cached, err := s.cache.GetCachedPopularQueries(ctx)
	switch {
	case err == nil:
		return firstN(cached, limit), nil
	case !errors.Is(err, database.ErrCacheMiss):
		s.logger.WithError(err).Warn("Failed to read cached popular queries")
	}

	top, err := s.repos.PopularQuery.GetTop(maxListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load popular queries: %w", err)
	}
	if top == nil {
		top = []models.PopularQuery{}
	}
	if err := s.cache.CachePopularQueries(ctx, top, time.Minute); err != nil {
		s.logger.WithError(err).Warn("Failed to cache popular queries")
	}
	return firstN(top, limit), nil
}

// RecentQueries lists a user's latest recommendation requests, newest first.
func (s *RecommendationService) RecentQueries(ctx context.Context, userID, limit int) ([]models.RecommendationQuery, error) {
	if s.repos == nil {
		return nil, ErrAnalyticsDisabled
	}
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive, got %d", models.ErrInvalidInput, userID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queries, err := s.repos.RecommendationQuery.GetByUser(userID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load recent queries: %w", err)
	}
	if queries == nil {
		queries = []models.RecommendationQuery{}
	}
	return queries, nil
}

func listLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return 10
	}
	return limit
}

func firstN(queries []models.PopularQuery, n int) []models.PopularQuery {
	if len(queries) > n {
		return queries[:n]
	}
	return queries
}

// track records the request for analytics. Failures are logged only.
func (s *RecommendationService) track(in RecommendInput, query string, r *Ranking, elapsed time.Duration) {
	if s.repos == nil {
		return
	}

	entry := &models.RecommendationQuery{
		UserID:         in.UserID,
		QueryText:      query,
		RequestID:      in.RequestID,
		ResultsCount:   len(r.Recommendations),
		Personalized:   r.Personalized,
		Degraded:       r.Degraded,
		CacheHit:       r.Cached,
		WeightPrompt:   r.Weights.Prompt,
		WeightUser:     r.Weights.UserProfile,
		WeightRating:   r.Weights.Rating,
		WeightGenre:    r.Weights.Genre,
		WeightYear:     r.Weights.Year,
		RequestedAt:    time.Now(),
		ResponseTimeMs: int(elapsed.Milliseconds()),
		UserAgent:      in.UserAgent,
		IPAddress:      in.IPAddress,
	}
	if len(r.Recommendations) > 0 {
		entry.TopMovieID = r.Recommendations[0].MovieID
	}
	if err := s.repos.RecommendationQuery.Create(entry); err != nil {
		s.logger.WithError(err).Error("Failed to track recommendation query")
	}

	if query == "" {
		return
	}
	key := strings.ToLower(query)
	if err := s.repos.PopularQuery.IncrementCount(key); err != nil {
		s.logger.WithError(err).Error("Failed to update popular queries")
		return
	}
	if err := s.repos.PopularQuery.UpdateStats(key, float64(len(r.Recommendations)), int(elapsed.Milliseconds())); err != nil {
		s.logger.WithError(err).Error("Failed to update query stats")
	}
}
