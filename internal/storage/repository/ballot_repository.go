package repository

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/domain/ballot"
	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/logger"
)

// GormBallotRepository implements BallotRepository using GORM.
// Counters are maintained by the ballot triggers, never from here.
type GormBallotRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewGormBallotRepository creates a new ballot repository
func NewGormBallotRepository(db *gorm.DB) *GormBallotRepository {
	return &GormBallotRepository{
		db:  db,
		log: logger.Repository("ballot"),
	}
}

// Insert stores the ballot. The storage layer decides double votes, list
// pairing and election status; this method only translates its verdict.
func (r *GormBallotRepository) Insert(ctx context.Context, b *ballot.Ballot) error {
	r.log.Debug("inserting ballot", "election_id", b.ElectionID)

	err := r.db.WithContext(ctx).Create(b).Error
	if err == nil {
		return nil
	}

	switch classify(err) {
	case violationVoterElection:
		return common.Wrap(common.KindAlreadyVoted, err, "voter has already cast a ballot in this election")
	case violationListElection, violationForeignKey:
		return common.Wrap(common.KindInvalidList, err, "candidate list does not belong to this election")
	case violationElectionNotOpen:
		return common.Wrap(common.KindElectionNotOpen, err, "election is not accepting ballots")
	case violationReceipt:
		return ErrReceiptCollision
	}

	r.log.Error("failed to insert ballot", "election_id", b.ElectionID, "error", err)
	return fmt.Errorf("failed to insert ballot: %w", err)
}

func (r *GormBallotRepository) GetByVoter(ctx context.Context, electionID, voterID uuid.UUID) (*ballot.Ballot, error) {
	var b ballot.Ballot
	err := r.db.WithContext(ctx).
		Where("election_id = ? AND voter_id = ?", electionID, voterID).
		First(&b).Error
	if err != nil {
		if isNotFound(err) {
			return nil, common.E(common.KindNotFound, "no ballot recorded for this voter")
		}
		r.log.Error("failed to retrieve ballot", "election_id", electionID, "error", err)
		return nil, fmt.Errorf("failed to retrieve ballot: %w", err)
	}
	return &b, nil
}

func (r *GormBallotRepository) HasVoted(ctx context.Context, electionID, voterID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ballot.Ballot{}).
		Where("election_id = ? AND voter_id = ?", electionID, voterID).
		Count(&count).Error
	if err != nil {
		r.log.Error("failed to check ballot", "election_id", electionID, "error", err)
		return false, fmt.Errorf("failed to check ballot: %w", err)
	}
	return count > 0, nil
}

func (r *GormBallotRepository) GetByReceipt(ctx context.Context, receipt string) (*ballot.Ballot, error) {
	var b ballot.Ballot
	if err := r.db.WithContext(ctx).Where("receipt = ?", receipt).First(&b).Error; err != nil {
		if isNotFound(err) {
			return nil, common.E(common.KindNotFound, "receipt not found")
		}
		r.log.Error("failed to retrieve ballot by receipt", "error", err)
		return nil, fmt.Errorf("failed to retrieve ballot by receipt: %w", err)
	}
	return &b, nil
}

func (r *GormBallotRepository) CountByElection(ctx context.Context, electionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ballot.Ballot{}).
		Where("election_id = ?", electionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return count, nil
}
