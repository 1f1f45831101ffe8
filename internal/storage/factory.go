package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/storage/migrations"
	"github.com/gravadigital/urna-api/internal/storage/postgres"
	"github.com/gravadigital/urna-api/internal/storage/repository"
	"github.com/gravadigital/urna-api/internal/storage/sqlite"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypePostgres represents PostgreSQL storage
	StorageTypePostgres StorageType = "postgres"
	// StorageTypeSQLite represents the embedded SQLite storage
	StorageTypeSQLite StorageType = "sqlite"
)

// Factory provides a factory pattern for creating storage containers
type Factory struct {
	storageType StorageType
}

// NewFactory creates a new storage factory
func NewFactory(storageType StorageType) *Factory {
	return &Factory{
		storageType: storageType,
	}
}

// Open connects to the configured backend without touching the schema
func (f *Factory) Open(cfg *config.Config) (*gorm.DB, error) {
	switch f.storageType {
	case StorageTypePostgres:
		return postgres.Connect(cfg)
	case StorageTypeSQLite:
		return sqlite.Open(cfg.DB.Path, postgres.GormLogger(cfg))
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.storageType)
	}
}

// CreateContainer connects, applies pending migrations and returns a ready container
func (f *Factory) CreateContainer(ctx context.Context, cfg *config.Config) (*repository.Container, error) {
	log := logger.Repository("factory")
	log.Info("Initializing repository container...", "storage", f.storageType)

	db, err := f.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Error("Failed to run migrations", "error", err)
		_ = postgres.Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := repository.NewContainer(db)
	if err := container.Health(ctx); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("Repository container initialized successfully", "storage", f.storageType)
	return container, nil
}

// GetSupportedTypes returns a list of supported storage types
func GetSupportedTypes() []StorageType {
	return []StorageType{
		StorageTypePostgres,
		StorageTypeSQLite,
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	st := StorageType(storageType)

	for _, supported := range GetSupportedTypes() {
		if st == supported {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported storage type: %s. Supported types: %v", storageType, GetSupportedTypes())
}

// FactoryFor returns a factory for the driver named in the configuration
func FactoryFor(cfg *config.Config) (*Factory, error) {
	st, err := ValidateStorageType(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	return NewFactory(st), nil
}
