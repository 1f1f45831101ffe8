package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/storage/postgres"
)

// Container groups every repository over one database handle. A container built
// inside WithTx shares that transaction across all of its repositories.
type Container struct {
	db            *gorm.DB
	log           *log.Logger
	electionRepo  ElectionRepository
	candidateRepo CandidateRepository
	ballotRepo    BallotRepository
	tallyRepo     TallyRepository
	snapshotRepo  SnapshotRepository
}

// NewContainer creates a container with all repositories initialized
func NewContainer(db *gorm.DB) *Container {
	return newContainer(db, logger.Repository("container"))
}

func newContainer(db *gorm.DB, l *log.Logger) *Container {
	return &Container{
		db:            db,
		log:           l,
		electionRepo:  NewGormElectionRepository(db),
		candidateRepo: NewGormCandidateRepository(db),
		ballotRepo:    NewGormBallotRepository(db),
		tallyRepo:     NewGormTallyRepository(db),
		snapshotRepo:  NewGormSnapshotRepository(db),
	}
}

// Elections returns the election repository
func (c *Container) Elections() ElectionRepository {
	return c.electionRepo
}

// Candidates returns the list and candidate repository
func (c *Container) Candidates() CandidateRepository {
	return c.candidateRepo
}

// Ballots returns the ballot repository
func (c *Container) Ballots() BallotRepository {
	return c.ballotRepo
}

// Tallies returns the bulk tally repository
func (c *Container) Tallies() TallyRepository {
	return c.tallyRepo
}

// Snapshots returns the results snapshot repository
func (c *Container) Snapshots() SnapshotRepository {
	return c.snapshotRepo
}

// DB returns the underlying database handle
func (c *Container) DB() *gorm.DB {
	return c.db
}

// WithTx runs fn against a container bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (c *Container) WithTx(ctx context.Context, fn func(tx *Container) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c.log.Debug("Database transaction started")
		return fn(newContainer(tx, logger.Repository("transaction")))
	})
}

// Health pings the database and probes every table the repositories use
func (c *Container) Health(ctx context.Context) error {
	c.log.Debug("Performing container health check...")

	if err := postgres.HealthCheckWithTimeout(c.db, 5*time.Second); err != nil {
		c.log.Error("Database health check failed", "error", err)
		return err
	}

	metrics := postgres.GetDatabaseMetrics(c.db)
	c.log.Debug("Database connection metrics",
		"open_connections", metrics.OpenConnections,
		"in_use_connections", metrics.InUseConnections,
		"idle_connections", metrics.IdleConnections)

	tables := []string{"elections", "candidate_lists", "candidates", "ballots", "tally_adjustments", "results_snapshots"}
	for _, table := range tables {
		var count int64
		if err := c.db.WithContext(ctx).Table(table).Limit(1).Count(&count).Error; err != nil {
			c.log.Error("Repository health check failed", "table", table, "error", err)
			return fmt.Errorf("table %s health check failed: %w", table, err)
		}
	}

	c.log.Debug("Container health check completed successfully")
	return nil
}

// Info reports pool statistics for the health endpoint
func (c *Container) Info() map[string]interface{} {
	return postgres.GetConnectionInfo(c.db)
}

// Close closes the database connection
func (c *Container) Close() error {
	c.log.Info("Closing repository container...")

	if c.db == nil {
		c.log.Warn("Database connection is nil, nothing to close")
		return nil
	}

	if err := postgres.Close(c.db); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	c.db = nil
	return nil
}
