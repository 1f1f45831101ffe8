package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/logger"
)

// GormCandidateRepository implements CandidateRepository using GORM
type GormCandidateRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewGormCandidateRepository creates a new list and candidate repository
func NewGormCandidateRepository(db *gorm.DB) *GormCandidateRepository {
	return &GormCandidateRepository{
		db:  db,
		log: logger.Repository("candidate"),
	}
}

func (r *GormCandidateRepository) CreateList(ctx context.Context, l *election.CandidateList) error {
	r.log.Debug("creating candidate list", "list_id", l.ID, "election_id", l.ElectionID)

	if err := l.Validate(); err != nil {
		return common.Wrap(common.KindValidation, err, "%s", err.Error())
	}

	if err := r.db.WithContext(ctx).Omit("Candidates").Create(l).Error; err != nil {
		return r.listWriteError("create", l.ID, err)
	}

	r.log.Info("candidate list created successfully", "list_id", l.ID, "election_id", l.ElectionID)
	return nil
}

func (r *GormCandidateRepository) GetList(ctx context.Context, id uuid.UUID) (*election.CandidateList, error) {
	var l election.CandidateList
	err := r.db.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("full_name ASC")
		}).
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		if isNotFound(err) {
			return nil, common.E(common.KindNotFound, "candidate list not found")
		}
		r.log.Error("failed to retrieve candidate list", "list_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve candidate list: %w", err)
	}
	return &l, nil
}

// UpdateList writes presentation fields only; the vote counter belongs to the triggers.
func (r *GormCandidateRepository) UpdateList(ctx context.Context, l *election.CandidateList) error {
	r.log.Debug("updating candidate list", "list_id", l.ID)

	if err := l.Validate(); err != nil {
		return common.Wrap(common.KindValidation, err, "%s", err.Error())
	}

	res := r.db.WithContext(ctx).Model(&election.CandidateList{}).
		Where("id = ?", l.ID).
		Updates(map[string]any{
			"name":        l.Name,
			"color":       l.Color,
			"description": l.Description,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return r.listWriteError("update", l.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.E(common.KindNotFound, "candidate list not found")
	}
	return nil
}

// DeleteList only removes lists whose counter is zero. Simulated votes carry no
// ballots, so the ballot foreign key alone would let the election total drift.
func (r *GormCandidateRepository) DeleteList(ctx context.Context, id uuid.UUID) error {
	r.log.Debug("deleting candidate list", "list_id", id)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND votes = 0", id).Delete(&election.CandidateList{})
		if res.Error != nil {
			switch classify(res.Error) {
			case violationForeignKey, violationListElection:
				return common.Wrap(common.KindElectionLocked, res.Error, "candidate list already has ballots")
			}
			return fmt.Errorf("failed to delete candidate list: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}

		var remaining int64
		if err := tx.Model(&election.CandidateList{}).Where("id = ?", id).Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to check candidate list: %w", err)
		}
		if remaining == 0 {
			return common.E(common.KindNotFound, "candidate list not found")
		}
		return common.E(common.KindElectionLocked, "candidate list already holds votes, reset the election first")
	})
	if err != nil {
		if !isDomainError(err) {
			r.log.Error("failed to delete candidate list", "list_id", id, "error", err)
		}
		return err
	}

	r.log.Info("candidate list deleted", "list_id", id)
	return nil
}

func (r *GormCandidateRepository) CreateCandidate(ctx context.Context, c *election.Candidate) error {
	r.log.Debug("creating candidate", "candidate_id", c.ID, "list_id", c.ListID)

	if err := c.Validate(); err != nil {
		return common.Wrap(common.KindValidation, err, "%s", err.Error())
	}

	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if classify(err) == violationForeignKey {
			return common.Wrap(common.KindNotFound, err, "candidate list not found")
		}
		r.log.Error("failed to create candidate", "candidate_id", c.ID, "error", err)
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

func (r *GormCandidateRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*election.Candidate, error) {
	var c election.Candidate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if isNotFound(err) {
			return nil, common.E(common.KindNotFound, "candidate not found")
		}
		r.log.Error("failed to retrieve candidate", "candidate_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve candidate: %w", err)
	}
	return &c, nil
}

func (r *GormCandidateRepository) UpdateCandidate(ctx context.Context, c *election.Candidate) error {
	if err := c.Validate(); err != nil {
		return common.Wrap(common.KindValidation, err, "%s", err.Error())
	}

	res := r.db.WithContext(ctx).Model(&election.Candidate{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"full_name":  c.FullName,
			"student_id": c.StudentID,
			"email":      c.Email,
			"position":   c.Position,
			"biography":  c.Biography,
			"platform":   c.Platform,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		r.log.Error("failed to update candidate", "candidate_id", c.ID, "error", res.Error)
		return fmt.Errorf("failed to update candidate: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.E(common.KindNotFound, "candidate not found")
	}
	return nil
}

func (r *GormCandidateRepository) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&election.Candidate{})
	if res.Error != nil {
		r.log.Error("failed to delete candidate", "candidate_id", id, "error", res.Error)
		return fmt.Errorf("failed to delete candidate: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.E(common.KindNotFound, "candidate not found")
	}
	return nil
}

func (r *GormCandidateRepository) listWriteError(op string, id uuid.UUID, err error) error {
	switch classify(err) {
	case violationListName:
		return common.Wrap(common.KindValidation, err, "a list with this name already exists in the election")
	case violationForeignKey:
		return common.Wrap(common.KindNotFound, err, "election not found")
	case violationCheck:
		return common.Wrap(common.KindValidation, err, "candidate list violates a storage constraint")
	}
	r.log.Error("failed to "+op+" candidate list", "list_id", id, "error", err)
	return fmt.Errorf("failed to %s candidate list: %w", op, err)
}
