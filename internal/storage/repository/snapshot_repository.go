package repository

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/tally"
	"github.com/gravadigital/urna-api/internal/logger"
)

// GormSnapshotRepository implements SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewGormSnapshotRepository creates a new results snapshot repository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{
		db:  db,
		log: logger.Repository("snapshot"),
	}
}

func (r *GormSnapshotRepository) Save(ctx context.Context, s *tally.Snapshot) error {
	r.log.Debug("saving results snapshot", "election_id", s.ElectionID)

	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if classify(err) == violationUnique {
			return common.Wrap(common.KindElectionLocked, err, "results were already published")
		}
		r.log.Error("failed to save results snapshot", "election_id", s.ElectionID, "error", err)
		return fmt.Errorf("failed to save results snapshot: %w", err)
	}
	return nil
}

func (r *GormSnapshotRepository) GetByElection(ctx context.Context, electionID uuid.UUID) (*tally.Snapshot, error) {
	var s tally.Snapshot
	if err := r.db.WithContext(ctx).Where("election_id = ?", electionID).First(&s).Error; err != nil {
		if isNotFound(err) {
			return nil, common.E(common.KindNotFound, "results snapshot not found")
		}
		return nil, fmt.Errorf("failed to retrieve results snapshot: %w", err)
	}
	return &s, nil
}

func (r *GormSnapshotRepository) SetObjectKey(ctx context.Context, id uuid.UUID, key string) error {
	res := r.db.WithContext(ctx).Model(&tally.Snapshot{}).
		Where("id = ?", id).
		Update("object_key", key)
	if res.Error != nil {
		r.log.Error("failed to store archive key", "snapshot_id", id, "error", res.Error)
		return fmt.Errorf("failed to store archive key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.E(common.KindNotFound, "results snapshot not found")
	}
	return nil
}
