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

// GormElectionRepository implements ElectionRepository using GORM
type GormElectionRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewGormElectionRepository creates a new election repository
func NewGormElectionRepository(db *gorm.DB) *GormElectionRepository {
	return &GormElectionRepository{
		db:  db,
		log: logger.Repository("election"),
	}
}

func (r *GormElectionRepository) Create(ctx context.Context, e *election.Election) error {
	r.log.Debug("creating new election", "election_id", e.ID, "title", e.Title)

	if err := e.Validate(); err != nil {
		return common.Wrap(common.KindValidation, err, "%s", err.Error())
	}

	if err := r.db.WithContext(ctx).Omit("Lists").Create(e).Error; err != nil {
		if classify(err) == violationCheck {
			return common.Wrap(common.KindValidation, err, "election violates a storage constraint")
		}
		r.log.Error("failed to create election", "error", err, "election_id", e.ID)
		return fmt.Errorf("failed to create election: %w", err)
	}

	r.log.Info("election created successfully", "election_id", e.ID)
	return nil
}

func (r *GormElectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*election.Election, error) {
	r.log.Debug("retrieving election by ID", "election_id", id)

	var e election.Election
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if isNotFound(err) {
			return nil, common.E(common.KindNotFound, "election not found")
		}
		r.log.Error("failed to retrieve election", "election_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve election: %w", err)
	}

	return &e, nil
}

// Lock only holds the row when called inside a transaction (Container.WithTx)
func (r *GormElectionRepository) Lock(ctx context.Context, id uuid.UUID) (*election.Election, error) {
	if err := lockElection(r.db.WithContext(ctx), id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GormElectionRepository) GetWithLists(ctx context.Context, id uuid.UUID) (*election.Election, error) {
	r.log.Debug("retrieving election with lists", "election_id", id)

	var e election.Election
	err := r.db.WithContext(ctx).
		Preload("Lists", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).
		Preload("Lists.Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("full_name ASC")
		}).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		if isNotFound(err) {
			return nil, common.E(common.KindNotFound, "election not found")
		}
		r.log.Error("failed to retrieve election with lists", "election_id", id, "error", err)
		return nil, fmt.Errorf("failed to retrieve election: %w", err)
	}

	return &e, nil
}

func (r *GormElectionRepository) List(ctx context.Context, params PaginationParams) (*PaginatedResult[*election.Election], error) {
	params = params.Normalize()
	r.log.Debug("listing elections", "page", params.Page, "page_size", params.PageSize)

	query := r.db.WithContext(ctx).Model(&election.Election{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("failed to count elections", "error", err)
		return nil, fmt.Errorf("failed to count elections: %w", err)
	}

	var elections []*election.Election
	if err := query.Order("created_at DESC").Offset(params.Offset()).Limit(params.PageSize).Find(&elections).Error; err != nil {
		r.log.Error("failed to list elections", "error", err)
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}

	return newPage(elections, total, params), nil
}

// UpdateDetails writes the editable metadata. Status and counters are never touched here.
func (r *GormElectionRepository) UpdateDetails(ctx context.Context, e *election.Election) error {
	r.log.Debug("updating election details", "election_id", e.ID)

	if err := e.Validate(); err != nil {
		return common.Wrap(common.KindValidation, err, "%s", err.Error())
	}

	res := r.db.WithContext(ctx).Model(&election.Election{}).
		Where("id = ?", e.ID).
		Updates(map[string]any{
			"title":           e.Title,
			"description":     e.Description,
			"start_date":      e.StartDate,
			"end_date":        e.EndDate,
			"eligible_voters": e.EligibleVoters,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		r.log.Error("failed to update election", "election_id", e.ID, "error", res.Error)
		return fmt.Errorf("failed to update election: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.E(common.KindNotFound, "election not found")
	}

	return nil
}

func (r *GormElectionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to election.Status) error {
	r.log.Debug("transitioning election status", "election_id", id, "from", from, "to", to)

	res := r.db.WithContext(ctx).Model(&election.Election{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		r.log.Error("failed to transition election status", "election_id", id, "error", res.Error)
		return fmt.Errorf("failed to transition election status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.E(common.KindInvalidTransition, "election is no longer %s", from)
	}

	r.log.Info("election status changed", "election_id", id, "from", from, "to", to)
	return nil
}
