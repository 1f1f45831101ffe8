package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/logger"
)

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Attempts        uint
	RetryDelay      time.Duration
}

// DefaultConnectionConfig returns default connection configuration
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 30,
		Attempts:        3,
		RetryDelay:      time.Second * 2,
	}
}

// DatabaseMetrics holds database connection metrics
type DatabaseMetrics struct {
	OpenConnections  int
	InUseConnections int
	IdleConnections  int
}

// Connect establishes a connection to the PostgreSQL database
func Connect(cfg *config.Config) (*gorm.DB, error) {
	connCfg := DefaultConnectionConfig()
	if cfg.DB.MaxOpenConns > 0 {
		connCfg.MaxOpenConns = cfg.DB.MaxOpenConns
	}
	if cfg.DB.MaxIdleConns > 0 {
		connCfg.MaxIdleConns = cfg.DB.MaxIdleConns
	}
	return ConnectWithConfig(cfg, connCfg)
}

// ConnectWithConfig establishes a connection with custom configuration
func ConnectWithConfig(cfg *config.Config, connCfg *ConnectionConfig) (*gorm.DB, error) {
	log := logger.Database()

	if err := validateDatabaseConfig(cfg); err != nil {
		log.Error("Database configuration validation failed", "error", err)
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	dsn := cfg.GetDatabaseURL()
	log.Debug("Connecting to database", "host", cfg.DB.Host, "port", cfg.DB.Port, "database", cfg.DB.Name)

	gormConfig := &gorm.Config{
		Logger: GormLogger(cfg),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	}

	var db *gorm.DB
	err := retry.Do(
		func() error {
			var err error
			db, err = gorm.Open(postgres.Open(dsn), gormConfig)
			if err != nil {
				return err
			}
			return testConnection(db)
		},
		retry.Attempts(connCfg.Attempts),
		retry.Delay(connCfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("Database connection failed", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		log.Error("Failed to connect to database after retries", "error", err, "attempts", connCfg.Attempts)
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connCfg.Attempts, err)
	}

	if err := configureConnectionPool(db, connCfg); err != nil {
		log.Error("Failed to configure connection pool", "error", err)
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}

	metrics := GetDatabaseMetrics(db)
	log.Info("Successfully connected to PostgreSQL database",
		"host", cfg.DB.Host,
		"database", cfg.DB.Name,
		"max_open_conns", connCfg.MaxOpenConns,
		"max_idle_conns", connCfg.MaxIdleConns,
		"open_connections", metrics.OpenConnections)

	return db, nil
}

// GormLogger picks the GORM log mode from the gin mode
func GormLogger(cfg *config.Config) gormLogger.Interface {
	if cfg.Server.GinMode == "debug" {
		return gormLogger.Default.LogMode(gormLogger.Info)
	}
	return gormLogger.Default.LogMode(gormLogger.Silent)
}

// validateDatabaseConfig validates the database configuration
func validateDatabaseConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if cfg.DB.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}

	if cfg.DB.Port == "" {
		return fmt.Errorf("database port cannot be empty")
	}

	if cfg.DB.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if cfg.DB.User == "" {
		return fmt.Errorf("database user cannot be empty")
	}

	return nil
}

// configureConnectionPool configures the database connection pool
func configureConnectionPool(db *gorm.DB, cfg *ConnectionConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return nil
}

// testConnection tests the database connection
func testConnection(db *gorm.DB) error {
	return HealthCheckWithTimeout(db, 5*time.Second)
}

// GetDatabaseMetrics returns current database connection metrics
func GetDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	sqlDB, err := db.DB()
	if err != nil {
		return &DatabaseMetrics{}
	}

	stats := sqlDB.Stats()
	return &DatabaseMetrics{
		OpenConnections:  stats.OpenConnections,
		InUseConnections: stats.InUse,
		IdleConnections:  stats.Idle,
	}
}

// HealthCheckWithTimeout pings the database with a deadline. Works for any gorm dialect.
func HealthCheckWithTimeout(db *gorm.DB, timeout time.Duration) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	log := logger.Database()

	if db == nil {
		log.Warn("Attempted to close nil database connection")
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	metrics := GetDatabaseMetrics(db)
	log.Debug("Database metrics before closing",
		"open_connections", metrics.OpenConnections,
		"in_use_connections", metrics.InUseConnections,
		"idle_connections", metrics.IdleConnections)

	if err := sqlDB.Close(); err != nil {
		log.Error("Failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	log.Info("Database connection closed successfully")
	return nil
}

// GetConnectionInfo returns pool statistics for the health endpoint
func GetConnectionInfo(db *gorm.DB) map[string]interface{} {
	if db == nil {
		return map[string]interface{}{
			"connected": false,
			"error":     "no database connection",
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return map[string]interface{}{
			"connected": false,
			"error":     err.Error(),
		}
	}

	stats := sqlDB.Stats()

	return map[string]interface{}{
		"connected":            true,
		"dialect":              db.Dialector.Name(),
		"open_connections":     stats.OpenConnections,
		"in_use_connections":   stats.InUse,
		"idle_connections":     stats.Idle,
		"max_open_connections": stats.MaxOpenConnections,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
	}
}
