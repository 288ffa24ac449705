package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/pkg/utils"
	"github.com/sirupsen/logrus"
)

// ErrCacheMiss is returned when a key is absent or the cache is disabled.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores ranked lists in Redis. A Cache with a nil client is a valid
// no-op cache that always misses.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	RecommendationsKey = "recommend:results:%d:%s"
	UserKeysKey        = "recommend:user:%d:keys"
	PopularQueriesKey  = "popular:queries"
)

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// RecommendationKey identifies one ranked list. The digest of the user's
// feedback is part of the key, so a new rating can never be answered with a
// list computed before it.
func RecommendationKey(userID int, query string, weights models.WeightVector, excludeRated bool, feedbackDigest string) string {
	fingerprint := fmt.Sprintf("%s|%.6f|%.6f|%.6f|%.6f|%.6f|%t|%s",
		query, weights.Prompt, weights.UserProfile, weights.Rating, weights.Genre, weights.Year,
		excludeRated, feedbackDigest)
	return fmt.Sprintf(RecommendationsKey, userID, utils.MD5Hash(fingerprint))
}

// CacheRecommendations stores value under key and remembers the key for the
// user so it can be dropped when the user's feedback changes.
func (c *Cache) CacheRecommendations(ctx context.Context, userID int, key string, value interface{}, expiration time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	userKeys := fmt.Sprintf(UserKeysKey, userID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, expiration)
	pipe.SAdd(ctx, userKeys, key)
	pipe.Expire(ctx, userKeys, expiration)
	_, err = pipe.Exec(ctx)
	return err
}

// GetCachedRecommendations decodes the value under key into result.
func (c *Cache) GetCachedRecommendations(ctx context.Context, key string, result interface{}) error {
	if !c.Enabled() {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, result)
}

// InvalidateUser removes every cached list of the user.
func (c *Cache) InvalidateUser(ctx context.Context, userID int) error {
	if !c.Enabled() {
		return nil
	}

	userKeys := fmt.Sprintf(UserKeysKey, userID)
	keys, err := c.client.SMembers(ctx, userKeys).Result()
	if err != nil {
		return err
	}

	keys = append(keys, userKeys)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"keys":    len(keys) - 1,
	}).Debug("Invalidated cached recommendations")
	return nil
}

// CachePopularQueries caches popular queries list
func (c *Cache) CachePopularQueries(ctx context.Context, queries []models.PopularQuery, expiration time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("failed to marshal popular queries: %w", err)
	}

	return c.client.Set(ctx, PopularQueriesKey, data, expiration).Err()
}

// GetCachedPopularQueries retrieves cached popular queries
func (c *Cache) GetCachedPopularQueries(ctx context.Context) ([]models.PopularQuery, error) {
	if !c.Enabled() {
		return nil, ErrCacheMiss
	}

	data, err := c.client.Get(ctx, PopularQueriesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var queries []models.PopularQuery
	err = json.Unmarshal(data, &queries)
	return queries, err
}
