package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string `mapstructure:"port" validate:"required"`
		Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Data struct {
		MoviesPath     string `mapstructure:"movies_path" validate:"required"`
		RatingsPath    string `mapstructure:"ratings_path" validate:"required"`
		EnrichmentPath string `mapstructure:"enrichment_path"`
		FeedbackPath   string `mapstructure:"feedback_path" validate:"required"`
	} `mapstructure:"data"`
	Database struct {
		URL    string `mapstructure:"url"`
		Driver string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	} `mapstructure:"database"`
	Redis struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"redis"`
	Cache struct {
		TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
	} `mapstructure:"cache"`
	Similarity struct {
		Provider        string        `mapstructure:"provider" validate:"oneof=local remote"`
		BaseURL         string        `mapstructure:"base_url"`
		APIKey          string        `mapstructure:"api_key"`
		Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
		Concurrency     int           `mapstructure:"concurrency" validate:"gt=0"`
		MaxRetries      int           `mapstructure:"max_retries" validate:"gte=0"`
		BreakerFailures uint32        `mapstructure:"breaker_failures" validate:"gt=0"`
	} `mapstructure:"similarity"`
	Scoring struct {
		TopN           int     `mapstructure:"top_n" validate:"gt=0,lte=100"`
		MaxRating      float64 `mapstructure:"max_rating" validate:"gt=0"`
		YearDecay      float64 `mapstructure:"year_decay" validate:"gt=0"`
		LikedThreshold float64 `mapstructure:"liked_threshold" validate:"gte=0"`
	} `mapstructure:"scoring"`
	Weights struct {
		models.WeightVector `mapstructure:",squash"`
		LearningRate        float64 `mapstructure:"learning_rate" validate:"gte=0"`
		MinFactor           float64 `mapstructure:"min_factor" validate:"gt=0,lte=1"`
		MaxFactor           float64 `mapstructure:"max_factor" validate:"gte=1"`
	} `mapstructure:"weights"`
	RateLimit struct {
		RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"gt=0"`
	} `mapstructure:"ratelimit"`
	Pagination struct {
		PageSize int `mapstructure:"page_size" validate:"gt=0,lte=50"`
	} `mapstructure:"pagination"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("data.movies_path", "dataset/movies.csv")
	v.SetDefault("data.ratings_path", "dataset/ratings.csv")
	v.SetDefault("data.enrichment_path", "dataset/movies_wiki.csv")
	v.SetDefault("data.feedback_path", "dataset/feedback_data.csv")
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("redis.url", "")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("similarity.provider", "local")
	v.SetDefault("similarity.base_url", "")
	v.SetDefault("similarity.api_key", "")
	v.SetDefault("similarity.timeout", "10s")
	v.SetDefault("similarity.concurrency", 8)
	v.SetDefault("similarity.max_retries", 3)
	v.SetDefault("similarity.breaker_failures", 5)
	v.SetDefault("scoring.top_n", 10)
	v.SetDefault("scoring.max_rating", 5.0)
	v.SetDefault("scoring.year_decay", 20.0)
	v.SetDefault("scoring.liked_threshold", 3.5)

	defaults := models.DefaultWeights()
	v.SetDefault("weights.prompt", defaults.Prompt)
	v.SetDefault("weights.user_profile", defaults.UserProfile)
	v.SetDefault("weights.rating", defaults.Rating)
	v.SetDefault("weights.genre", defaults.Genre)
	v.SetDefault("weights.year", defaults.Year)
	v.SetDefault("weights.learning_rate", 1.0)
	v.SetDefault("weights.min_factor", 0.25)
	v.SetDefault("weights.max_factor", 2.0)

	v.SetDefault("ratelimit.requests_per_minute", 60)
	v.SetDefault("pagination.page_size", 5)
}

// Load reads config.yaml from the given directories (the working directory
// when none are given) and overlays environment variables such as
// SIMILARITY_API_KEY or DATABASE_URL.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

var validate = validator.New()

// Validate checks field ranges and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Weights.WeightVector.Validate(); err != nil {
		return fmt.Errorf("invalid config: default weights: %w", err)
	}
	if c.Weights.MinFactor > c.Weights.MaxFactor {
		return fmt.Errorf("invalid config: weights.min_factor %.2f exceeds weights.max_factor %.2f", c.Weights.MinFactor, c.Weights.MaxFactor)
	}
	if c.Similarity.Provider == "remote" && c.Similarity.BaseURL == "" {
		return fmt.Errorf("invalid config: similarity.base_url is required for the remote provider")
	}
	return nil
}

// DefaultWeights is the configured blend before personalization.
func (c *Config) DefaultWeights() models.WeightVector {
	return c.Weights.WeightVector
}
