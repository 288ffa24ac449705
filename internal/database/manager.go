package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ErrDisabled is returned by pings against a connection that was not configured.
var ErrDisabled = errors.New("not configured")

// Manager owns the optional analytics database and cache connections.
// Either may be nil when its URL is empty.
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

// Config selects the connections to open.
type Config struct {
	DatabaseURL string
	Driver      string
	RedisURL    string
	LogLevel    string
}

// NewManager opens the configured connections with pooling.
func NewManager(config *Config, logger *logrus.Logger) (*Manager, error) {
	m := &Manager{logger: logger}

	if config.DatabaseURL != "" {
		db, err := openDatabase(config, logger)
		if err != nil {
			return nil, err
		}
		m.DB = db
	}

	if config.RedisURL != "" {
		client, err := openRedis(config.RedisURL)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.Redis = client
	}

	logger.WithFields(logrus.Fields{
		"database": m.DB != nil,
		"redis":    m.Redis != nil,
	}).Info("Database connections initialized")

	return m, nil
}

func openDatabase(config *Config, logger *logrus.Logger) (*gorm.DB, error) {
	var gl gormLogger.Interface
	switch config.LogLevel {
	case "debug":
		gl = gormLogger.New(logger, gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Info,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		})
	default:
		gl = gormLogger.Default.LogMode(gormLogger.Silent)
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case "", "postgres":
		dialector = postgres.Open(config.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(config.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if config.Driver == "sqlite" {
		// One writer at a time.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func openRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 5
	opts.MaxConnAge = time.Hour
	opts.IdleTimeout = 30 * time.Minute
	opts.IdleCheckFrequency = 30 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Migrate creates the analytics tables.
func (m *Manager) Migrate() error {
	if m.DB == nil {
		return nil
	}
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.RecommendationQuery{},
		&models.PopularQuery{},
		&models.SystemHealth{},
	)
}

// Close closes all open connections.
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

func (m *Manager) PingDatabase(ctx context.Context) error {
	if m.DB == nil {
		return ErrDisabled
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Manager) PingRedis(ctx context.Context) error {
	if m.Redis == nil {
		return ErrDisabled
	}
	return m.Redis.Ping(ctx).Err()
}
