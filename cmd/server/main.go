package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iwhizerd/Movie-recomendator/internal/api/handlers"
	"github.com/iwhizerd/Movie-recomendator/internal/catalog"
	"github.com/iwhizerd/Movie-recomendator/internal/config"
	"github.com/iwhizerd/Movie-recomendator/internal/database"
	"github.com/iwhizerd/Movie-recomendator/internal/feedback"
	"github.com/iwhizerd/Movie-recomendator/internal/health"
	"github.com/iwhizerd/Movie-recomendator/internal/middleware"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/profile"
	"github.com/iwhizerd/Movie-recomendator/internal/repository"
	"github.com/iwhizerd/Movie-recomendator/internal/scoring"
	"github.com/iwhizerd/Movie-recomendator/internal/services"
	"github.com/iwhizerd/Movie-recomendator/internal/similarity"
	"github.com/iwhizerd/Movie-recomendator/internal/weights"
	"github.com/iwhizerd/Movie-recomendator/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const serviceName = "movie-recommender"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.Log.Level)
	logger.WithFields(logrus.Fields{
		"port":       cfg.Server.Port,
		"similarity": cfg.Similarity.Provider,
	}).Info("Starting movie recommender...")

	cat, err := catalog.Load(catalog.Paths{
		MoviesPath:     cfg.Data.MoviesPath,
		RatingsPath:    cfg.Data.RatingsPath,
		EnrichmentPath: cfg.Data.EnrichmentPath,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalog")
	}

	feedbackStore, err := feedback.NewCSVStore(cfg.Data.FeedbackPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}

	weightStore, err := weights.NewStore(feedbackStore, weights.Options{
		LearningRate: cfg.Weights.LearningRate,
		MinFactor:    cfg.Weights.MinFactor,
		MaxFactor:    cfg.Weights.MaxFactor,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid weight options")
	}

	var (
		provider        similarity.Provider
		similarityCheck health.Pinger
	)
	switch cfg.Similarity.Provider {
	case "remote":
		retry := similarity.DefaultRetryConfig()
		retry.MaxRetries = cfg.Similarity.MaxRetries
		client := similarity.NewClient(similarity.ClientConfig{
			BaseURL:         cfg.Similarity.BaseURL,
			APIKey:          cfg.Similarity.APIKey,
			Timeout:         cfg.Similarity.Timeout,
			Retry:           retry,
			BreakerFailures: cfg.Similarity.BreakerFailures,
		}, logger)
		provider, similarityCheck = client, client
	default:
		provider = similarity.NewLocalProvider()
	}

	engine := scoring.NewEngine(provider, scoring.Options{
		MaxRating:   cfg.Scoring.MaxRating,
		Concurrency: cfg.Similarity.Concurrency,
	}, logger)

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		Driver:      cfg.Database.Driver,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Log.Level,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate analytics tables")
	}

	var (
		repos      *repository.RepositoryManager
		healthRepo models.SystemHealthRepository
	)
	if dbManager.DB != nil {
		repos = repository.NewRepositoryManager(dbManager.DB)
		healthRepo = repos.SystemHealth
	}

	service := services.NewRecommendationService(
		cat,
		engine,
		weightStore,
		feedbackStore,
		database.NewCache(dbManager.Redis, logger),
		repos,
		services.Options{
			DefaultWeights: cfg.Weights.WeightVector,
			DefaultTopN:    cfg.Scoring.TopN,
			CacheTTL:       cfg.Cache.TTL,
			Profile: profile.Options{
				MaxRating:      cfg.Scoring.MaxRating,
				LikedThreshold: cfg.Scoring.LikedThreshold,
				YearDecay:      cfg.Scoring.YearDecay,
			},
		},
		logger,
	)

	checker := health.NewHealthChecker(dbManager, feedbackStore, similarityCheck, healthRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go checker.PeriodicHealthCheck(ctx, time.Minute)

	gin.SetMode(cfg.Server.Mode)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute)
	defer rateLimiter.Stop()

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.SecurityHeaders(), requestLogger(logger))

	router.GET("/health", handlers.NewHealthHandler(checker, serviceName).HandleHealth)

	api := router.Group("/api/v1")
	api.Use(rateLimiter.RateLimit())
	handlers.NewRecommendationHandler(service, cfg.Pagination.PageSize, 2*cfg.Similarity.Timeout, logger).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": middleware.GetRequestID(c),
		}).Debug("Request handled")
	}
}
