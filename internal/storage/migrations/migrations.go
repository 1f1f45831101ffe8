package migrations

import (
	"fmt"
	"strings"
	"time"

	"github.com/gravadigital/urna-api/internal/logger"
	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	ID   string
	Name string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

// Applied describes a migration recorded in schema_migrations
type Applied struct {
	ID        string
	Name      string
	AppliedAt time.Time
}

// GetMigrations returns all available migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			ID:   "001",
			Name: "create_extensions",
			Up:   migration001Up,
			Down: migration001Down,
		},
		{
			ID:   "002",
			Name: "create_core_tables",
			Up:   migration002Up,
			Down: migration002Down,
		},
		{
			ID:   "003",
			Name: "create_indexes",
			Up:   migration003Up,
			Down: migration003Down,
		},
		{
			ID:   "004",
			Name: "create_tally_triggers",
			Up:   migration004Up,
			Down: migration004Down,
		},
		{
			ID:   "005",
			Name: "create_audit_views",
			Up:   migration005Up,
			Down: migration005Down,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(db *gorm.DB) error {
	log := logger.Migration()

	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := GetMigrations()

	for _, migration := range migrations {
		if hasBeenRun(db, migration.ID) {
			log.Debug("Migration already applied, skipping", "id", migration.ID, "name", migration.Name)
			continue
		}

		log.Info("Running migration", "id", migration.ID, "name", migration.Name, "dialect", db.Dialector.Name())

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("failed to run migration %s: %w", migration.ID, err)
			}

			return recordMigration(tx, migration.ID, migration.Name)
		})
		if err != nil {
			return err
		}

		log.Info("Successfully applied migration", "id", migration.ID)
	}

	log.Info("All migrations completed successfully")
	return nil
}

// AppliedMigrations lists the migrations recorded in schema_migrations
func AppliedMigrations(db *gorm.DB) ([]Applied, error) {
	var applied []Applied
	err := db.Raw("SELECT id, name, applied_at FROM schema_migrations ORDER BY id").Scan(&applied).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	return applied, nil
}

// createMigrationsTable creates the migrations tracking table
func createMigrationsTable(db *gorm.DB) error {
	return db.Exec(ddl(db, `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            id VARCHAR(10) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at {timestamp} DEFAULT CURRENT_TIMESTAMP
        )
    `)).Error
}

// hasBeenRun checks if a migration has already been applied
func hasBeenRun(db *gorm.DB, migrationID string) bool {
	var count int64
	db.Raw("SELECT COUNT(*) FROM schema_migrations WHERE id = ?", migrationID).Scan(&count)
	return count > 0
}

// recordMigration records that a migration has been applied
func recordMigration(db *gorm.DB, migrationID, name string) error {
	return db.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", migrationID, name).Error
}

// RollbackMigration rolls back the last applied migration
func RollbackMigration(db *gorm.DB) error {
	log := logger.Migration()

	var lastMigration struct {
		ID   string
		Name string
	}

	// ids are zero padded, so they order the same way the migrations were applied
	err := db.Raw(`
        SELECT id, name FROM schema_migrations
        ORDER BY id DESC
        LIMIT 1
    `).Scan(&lastMigration).Error
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	if lastMigration.ID == "" {
		return fmt.Errorf("no migrations to rollback")
	}

	migrations := GetMigrations()
	var targetMigration *Migration

	for i := range migrations {
		if migrations[i].ID == lastMigration.ID {
			targetMigration = &migrations[i]
			break
		}
	}

	if targetMigration == nil {
		return fmt.Errorf("migration %s not found", lastMigration.ID)
	}

	log.Info("Rolling back migration", "id", targetMigration.ID, "name", targetMigration.Name)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err = targetMigration.Down(tx); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", targetMigration.ID, err)
		}

		return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", targetMigration.ID).Error
	})
	if err != nil {
		return err
	}

	log.Info("Successfully rolled back migration", "id", targetMigration.ID)
	return nil
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

var (
	postgresTypes = strings.NewReplacer("{uuid}", "UUID", "{timestamp}", "TIMESTAMPTZ", "{json}", "JSONB")
	sqliteTypes   = strings.NewReplacer("{uuid}", "TEXT", "{timestamp}", "DATETIME", "{json}", "TEXT")
)

// ddl fills the column type placeholders for the connected dialect
func ddl(db *gorm.DB, stmt string) string {
	if isPostgres(db) {
		return postgresTypes.Replace(stmt)
	}
	return sqliteTypes.Replace(stmt)
}

func execAll(db *gorm.DB, statements []string) error {
	for _, stmt := range statements {
		if err := db.Exec(ddl(db, stmt)).Error; err != nil {
			return err
		}
	}
	return nil
}
