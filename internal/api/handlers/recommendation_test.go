package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iwhizerd/Movie-recomendator/internal/catalog"
	"github.com/iwhizerd/Movie-recomendator/internal/database"
	"github.com/iwhizerd/Movie-recomendator/internal/feedback"
	"github.com/iwhizerd/Movie-recomendator/internal/health"
	"github.com/iwhizerd/Movie-recomendator/internal/middleware"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/profile"
	"github.com/iwhizerd/Movie-recomendator/internal/scoring"
	"github.com/iwhizerd/Movie-recomendator/internal/services"
	"github.com/iwhizerd/Movie-recomendator/internal/similarity"
	"github.com/iwhizerd/Movie-recomendator/internal/weights"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var movies []models.Movie
	for i := 1; i <= 12; i++ {
		movies = append(movies, models.Movie{
			ID:     i,
			Title:  fmt.Sprintf("Movie %d (19%02d)", i, 80+i),
			Genres: []string{"Drama"},
			Year:   1980 + i,
		})
	}
	movies[0].WikipediaIntro = "A heist in space."
	cat := catalog.New(movies, nil)

	store, err := feedback.NewCSVStore(filepath.Join(t.TempDir(), "feedback_data.csv"), logger)
	require.NoError(t, err)
	ws, err := weights.NewStore(store, weights.DefaultOptions(), logger)
	require.NoError(t, err)
	engine := scoring.NewEngine(similarity.NewLocalProvider(), scoring.DefaultOptions(), logger)
	svc := services.NewRecommendationService(cat, engine, ws, store, database.NewCache(nil, logger), nil, services.Options{
		DefaultWeights: models.DefaultWeights(),
		DefaultTopN:    10,
		Profile:        profile.DefaultOptions(),
	}, logger)

	manager, err := database.NewManager(&database.Config{}, logger)
	require.NoError(t, err)
	checker := health.NewHealthChecker(manager, store, nil, nil, logger)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/health", NewHealthHandler(checker, "movie-recommender").HandleHealth)
	NewRecommendationHandler(svc, 5, 0, logger).RegisterRoutes(r.Group("/api/v1"))
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestHandleRecommend_Paginates(t *testing.T) {
	r := setupRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", gin.H{"user_id": 7, "query": "space heist", "top_n": 12})
	require.Equal(t, http.StatusOK, w.Code)
	var first models.RecommendResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, 12, first.Total)
	assert.Equal(t, 3, first.TotalPages)
	require.Len(t, first.Recommendations, 5)
	assert.Equal(t, 1, first.Recommendations[0].MovieID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.True(t, first.ColdStart)

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/recommendations", gin.H{"user_id": 7, "query": "space heist", "top_n": 12, "page": 2})
	require.Equal(t, http.StatusOK, w.Code)
	var last models.RecommendResponse
	require.NoError(t, json.Unmarshal(env.Data, &last))
	assert.Len(t, last.Recommendations, 2)
	assert.Equal(t, 2, last.Page)
}

func TestHandleRecommend_BadRequests(t *testing.T) {
	r := setupRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/recommendations", gin.H{"query": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/recommendations", gin.H{"user_id": 1, "top_n": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/recommendations", gin.H{"user_id": 1, "weights": gin.H{"prompt": -1, "rating": 1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleFeedback_RoundTrip(t *testing.T) {
	r := setupRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/feedback", gin.H{
		"user_id": 3, "movie_id": 1, "sim_query": 0.9, "sim_user": 0.1, "rating_scaled": 0.5, "final_score": 0.6, "feedback": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, env.Error)

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/users/3/feedback", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history models.HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Equal(t, 1, history.Total)
	assert.Equal(t, "Movie 1 (1981)", history.Feedback[0].Title)

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/users/3/weights", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var weightsResp models.WeightsResponse
	require.NoError(t, json.Unmarshal(env.Data, &weightsResp))
	assert.Greater(t, weightsResp.Personalized.Prompt, weightsResp.Defaults.Prompt)
}

func TestHandleFeedback_Errors(t *testing.T) {
	r := setupRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/feedback", gin.H{"user_id": 3, "movie_id": 999, "feedback": 4})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/feedback", gin.H{"user_id": 3, "movie_id": 1, "feedback": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/users/abc/weights", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePopular_DisabledAnalytics(t *testing.T) {
	r := setupRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/popular", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/users/7/queries", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/users/0/queries", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealth(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, health.StatusDisabled, resp.Services["redis"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(fmt.Errorf("x: %w", models.ErrInvalidInput)))
	assert.Equal(t, http.StatusNotFound, StatusFor(models.ErrNotFound))
	assert.Equal(t, http.StatusBadGateway, StatusFor(models.ErrDependencyFailure))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(models.ErrStorageFailure))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestPaginate(t *testing.T) {
	recs := make([]models.Recommendation, 7)
	for i := range recs {
		recs[i].MovieID = i + 1
	}

	page, total := Paginate(recs, 1, 5)
	assert.Equal(t, 2, total)
	require.Len(t, page, 2)
	assert.Equal(t, 6, page[0].MovieID)

	page, _ = Paginate(recs, 5, 5)
	assert.Empty(t, page)

	page, total = Paginate(nil, 0, 5)
	assert.Empty(t, page)
	assert.Zero(t, total)
}
