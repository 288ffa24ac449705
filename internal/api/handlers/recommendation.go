package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iwhizerd/Movie-recomendator/internal/middleware"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/services"
	"github.com/iwhizerd/Movie-recomendator/pkg/utils"
	"github.com/sirupsen/logrus"
)

type RecommendationHandler struct {
	service         *services.RecommendationService
	defaultPageSize int
	timeout         time.Duration
	logger          *logrus.Logger
}

func NewRecommendationHandler(service *services.RecommendationService, defaultPageSize int, timeout time.Duration, logger *logrus.Logger) *RecommendationHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RecommendationHandler{
		service:         service,
		defaultPageSize: defaultPageSize,
		timeout:         timeout,
		logger:          logger,
	}
}

// RegisterRoutes mounts the recommendation API on group.
func (h *RecommendationHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/recommendations", h.HandleRecommend)
	group.POST("/feedback", h.HandleFeedback)
	group.GET("/users/:userId/weights", h.HandleWeights)
	group.GET("/users/:userId/feedback", h.HandleHistory)
	group.GET("/users/:userId/queries", h.HandleQueries)
	group.GET("/popular", h.HandlePopular)
}

// HandleRecommend ranks the catalog and returns one page of it. Pages are
// zero-based slices of the ranked list; they never reorder it.
func (h *RecommendationHandler) HandleRecommend(c *gin.Context) {
	startTime := time.Now()

	var req models.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid recommendation request")
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"query":      req.Query,
		"top_n":      req.TopN,
		"request_id": middleware.GetRequestID(c),
		"ip_address": c.ClientIP(),
	}).Info("Processing recommendation request")

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	ranking, err := h.service.Recommend(ctx, services.RecommendInput{
		UserID:       req.UserID,
		Query:        req.Query,
		TopN:         req.TopN,
		ExcludeRated: req.ExcludeRated,
		Weights:      req.Weights,
		RequestID:    middleware.GetRequestID(c),
		UserAgent:    c.GetHeader("User-Agent"),
		IPAddress:    c.ClientIP(),
	})
	if err != nil {
		h.fail(c, "Recommendation failed", err)
		return
	}

	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = h.defaultPageSize
	}
	page, totalPages := Paginate(ranking.Recommendations, req.Page, pageSize)

	response := models.RecommendResponse{
		UserID:          ranking.UserID,
		Query:           ranking.Query,
		Recommendations: page,
		Weights:         ranking.Weights,
		Personalized:    ranking.Personalized,
		Degraded:        ranking.Degraded,
		ColdStart:       ranking.ColdStart,
		Total:           len(ranking.Recommendations),
		Page:            req.Page,
		PageSize:        pageSize,
		TotalPages:      totalPages,
		ResponseTime:    int(time.Since(startTime).Milliseconds()),
		Cached:          ranking.Cached,
	}

	message := "Recommendations generated"
	if ranking.Degraded {
		message = "Recommendations generated without text similarity for some movies"
	}
	utils.SuccessResponse(c, http.StatusOK, message, response)
}

// HandleFeedback stores a star rating for a recommended movie.
func (h *RecommendationHandler) HandleFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback format", err)
		return
	}

	record, err := h.service.SubmitFeedback(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Failed to save feedback", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  record.UserID,
		"movie_id": record.MovieID,
		"feedback": record.Feedback,
	}).Info("Feedback recorded")

	utils.SuccessResponse(c, http.StatusCreated, "Feedback recorded", record)
}

func (h *RecommendationHandler) HandleWeights(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	weights, err := h.service.Weights(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "Failed to compute weights", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Weights retrieved", weights)
}

func (h *RecommendationHandler) HandleHistory(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	history, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "Failed to load feedback", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Feedback retrieved", history)
}

// HandleQueries lists the user's latest recommendation requests.
func (h *RecommendationHandler) HandleQueries(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	queries, err := h.service.RecentQueries(c.Request.Context(), userID, limit)
	if err != nil {
		h.fail(c, "Failed to load recent queries", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Recent queries retrieved", queries)
}

func (h *RecommendationHandler) HandlePopular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	popular, err := h.service.Popular(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "Failed to get popular queries", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Popular queries retrieved", popular)
}

func (h *RecommendationHandler) userID(c *gin.Context) (int, bool) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || userID <= 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user id", err)
		return 0, false
	}
	return userID, true
}

func (h *RecommendationHandler) fail(c *gin.Context, message string, err error) {
	code := StatusFor(err)
	entry := h.logger.WithError(err).WithField("request_id", middleware.GetRequestID(c))
	if code >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Warn(message)
	}
	utils.ErrorResponse(c, code, message, err)
}

// StatusFor maps error kinds onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDependencyFailure):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrStorageFailure), errors.Is(err, services.ErrAnalyticsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Paginate returns page (zero-based) of recs and the page count.
func Paginate(recs []models.Recommendation, page, pageSize int) ([]models.Recommendation, int) {
	if pageSize <= 0 {
		return []models.Recommendation{}, 0
	}
	totalPages := (len(recs) + pageSize - 1) / pageSize
	start := page * pageSize
	if page < 0 || start >= len(recs) {
		return []models.Recommendation{}, totalPages
	}
	end := start + pageSize
	if end > len(recs) {
		end = len(recs)
	}
	return recs[start:end], totalPages
}
