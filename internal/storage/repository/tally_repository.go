package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/domain/ballot"
	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/tally"
	"github.com/gravadigital/urna-api/internal/logger"
)

// GormTallyRepository implements TallyRepository using GORM
type GormTallyRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewGormTallyRepository creates a new tally repository
func NewGormTallyRepository(db *gorm.DB) *GormTallyRepository {
	return &GormTallyRepository{
		db:  db,
		log: logger.Repository("tally"),
	}
}

// lockElection touches the election row so ballot inserts of the same election
// queue behind the running transaction.
func lockElection(tx *gorm.DB, electionID uuid.UUID) error {
	res := tx.Model(&election.Election{}).
		Where("id = ?", electionID).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return fmt.Errorf("failed to lock election: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.E(common.KindNotFound, "election not found")
	}
	return nil
}

// ApplyDistribution adds the given counts to the lists and their sum to the
// election. Every list must belong to the election or nothing is applied.
func (r *GormTallyRepository) ApplyDistribution(ctx context.Context, electionID uuid.UUID, distribution map[uuid.UUID]int64, performedBy uuid.UUID) (int64, error) {
	if len(distribution) == 0 {
		return 0, common.E(common.KindValidation, "distribution is empty")
	}

	ids := make([]string, 0, len(distribution))
	var sum int64
	for listID, count := range distribution {
		if count < 0 {
			return 0, common.E(common.KindValidation, "vote counts must not be negative")
		}
		if count > math.MaxInt64-sum {
			return 0, common.E(common.KindValidation, "distribution is too large")
		}
		ids = append(ids, listID.String())
		sum += count
	}

	r.log.Debug("applying simulated distribution", "election_id", electionID, "lists", len(ids), "votes", sum)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockElection(tx, electionID); err != nil {
			return err
		}

		var matched int64
		if err := tx.Model(&election.CandidateList{}).
			Where("election_id = ? AND id IN ?", electionID, ids).
			Count(&matched).Error; err != nil {
			return fmt.Errorf("failed to verify lists: %w", err)
		}
		if matched != int64(len(ids)) {
			return common.E(common.KindInvalidList, "distribution references lists outside this election")
		}

		// list counters never exceed the election total, so checking the total is enough
		var total int64
		if err := tx.Model(&election.Election{}).
			Where("id = ?", electionID).
			Select("total_votes").
			Scan(&total).Error; err != nil {
			return fmt.Errorf("failed to read election total: %w", err)
		}
		if sum > math.MaxInt64-total {
			return common.E(common.KindValidation, "distribution would overflow the election total")
		}

		for listID, count := range distribution {
			if count == 0 {
				continue
			}
			if err := tx.Model(&election.CandidateList{}).
				Where("id = ? AND election_id = ?", listID, electionID).
				Update("votes", gorm.Expr("votes + ?", count)).Error; err != nil {
				return fmt.Errorf("failed to update list votes: %w", err)
			}
		}

		if err := tx.Model(&election.Election{}).
			Where("id = ?", electionID).
			Update("total_votes", gorm.Expr("total_votes + ?", sum)).Error; err != nil {
			return fmt.Errorf("failed to update election total: %w", err)
		}

		adj := &tally.Adjustment{
			ElectionID:  electionID,
			Kind:        tally.AdjustmentSimulation,
			VotesAdded:  sum,
			PerformedBy: performedBy,
		}
		if err := tx.Create(adj).Error; err != nil {
			return fmt.Errorf("failed to record adjustment: %w", err)
		}
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			r.log.Error("failed to apply simulated distribution", "election_id", electionID, "error", err)
		}
		return 0, err
	}

	r.log.Info("simulated distribution applied", "election_id", electionID, "votes_added", sum, "performed_by", performedBy)
	return sum, nil
}

// Reset deletes every ballot of the election and zeroes its counters. The
// in-progress reset marker is what lets the immutability trigger accept the deletes;
// it is closed before commit.
func (r *GormTallyRepository) Reset(ctx context.Context, electionID uuid.UUID, performedBy uuid.UUID) (int64, error) {
	r.log.Debug("resetting election votes", "election_id", electionID)

	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockElection(tx, electionID); err != nil {
			return err
		}

		marker := &tally.Adjustment{
			ElectionID:  electionID,
			Kind:        tally.AdjustmentReset,
			PerformedBy: performedBy,
			InProgress:  true,
		}
		if err := tx.Create(marker).Error; err != nil {
			return fmt.Errorf("failed to record reset: %w", err)
		}

		res := tx.Where("election_id = ?", electionID).Delete(&ballot.Ballot{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete ballots: %w", res.Error)
		}
		removed = res.RowsAffected

		if err := tx.Model(&election.CandidateList{}).
			Where("election_id = ?", electionID).
			Update("votes", 0).Error; err != nil {
			return fmt.Errorf("failed to zero list votes: %w", err)
		}

		if err := tx.Model(&election.Election{}).
			Where("id = ?", electionID).
			Update("total_votes", 0).Error; err != nil {
			return fmt.Errorf("failed to zero election total: %w", err)
		}

		if err := tx.Model(&tally.Adjustment{}).
			Where("election_id = ? AND kind = ? AND superseded = ?", electionID, tally.AdjustmentSimulation, false).
			Update("superseded", true).Error; err != nil {
			return fmt.Errorf("failed to supersede simulations: %w", err)
		}

		return tx.Model(&tally.Adjustment{}).
			Where("id = ?", marker.ID).
			Updates(map[string]any{
				"in_progress":     false,
				"ballots_removed": removed,
			}).Error
	})
	if err != nil {
		if !isDomainError(err) {
			r.log.Error("failed to reset election votes", "election_id", electionID, "error", err)
		}
		return 0, err
	}

	r.log.Info("election votes reset", "election_id", electionID, "ballots_removed", removed, "performed_by", performedBy)
	return removed, nil
}

func (r *GormTallyRepository) Audit(ctx context.Context, electionID uuid.UUID) (*tally.Audit, error) {
	var rows []tally.Audit
	err := r.db.WithContext(ctx).
		Table("election_tally_audit").
		Where("election_id = ?", electionID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		r.log.Error("failed to read tally audit", "election_id", electionID, "error", err)
		return nil, fmt.Errorf("failed to read tally audit: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.E(common.KindNotFound, "election not found")
	}
	return &rows[0], nil
}

func (r *GormTallyRepository) Adjustments(ctx context.Context, electionID uuid.UUID) ([]*tally.Adjustment, error) {
	var adjustments []*tally.Adjustment
	err := r.db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Order("created_at ASC").
		Find(&adjustments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tally adjustments: %w", err)
	}
	return adjustments, nil
}

func isDomainError(err error) bool {
	var domainErr *common.Error
	return errors.As(err, &domainErr)
}
