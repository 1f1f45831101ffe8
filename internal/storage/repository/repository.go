package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/domain/ballot"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/tally"
)

// ElectionRepository define los metodos para interactuar con las elecciones en la DB.
type ElectionRepository interface {
	Create(ctx context.Context, e *election.Election) error
	GetByID(ctx context.Context, id uuid.UUID) (*election.Election, error)
	// Lock takes the election row for the rest of the transaction and returns it.
	// Status changes and ballot inserts of the election wait until it commits.
	Lock(ctx context.Context, id uuid.UUID) (*election.Election, error)
	// GetWithLists loads the election with its lists and their candidates
	GetWithLists(ctx context.Context, id uuid.UUID) (*election.Election, error)
	List(ctx context.Context, params PaginationParams) (*PaginatedResult[*election.Election], error)
	UpdateDetails(ctx context.Context, e *election.Election) error
	// TransitionStatus moves the election from one status to another, failing if
	// the stored status is no longer from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to election.Status) error
}

// CandidateRepository define los métodos para listas y candidatos.
type CandidateRepository interface {
	CreateList(ctx context.Context, l *election.CandidateList) error
	GetList(ctx context.Context, id uuid.UUID) (*election.CandidateList, error)
	UpdateList(ctx context.Context, l *election.CandidateList) error
	DeleteList(ctx context.Context, id uuid.UUID) error

	CreateCandidate(ctx context.Context, c *election.Candidate) error
	GetCandidate(ctx context.Context, id uuid.UUID) (*election.Candidate, error)
	UpdateCandidate(ctx context.Context, c *election.Candidate) error
	DeleteCandidate(ctx context.Context, id uuid.UUID) error
}

// BallotRepository only inserts and reads. There is no update or delete.
type BallotRepository interface {
	Insert(ctx context.Context, b *ballot.Ballot) error
	GetByVoter(ctx context.Context, electionID, voterID uuid.UUID) (*ballot.Ballot, error)
	HasVoted(ctx context.Context, electionID, voterID uuid.UUID) (bool, error)
	GetByReceipt(ctx context.Context, receipt string) (*ballot.Ballot, error)
	CountByElection(ctx context.Context, electionID uuid.UUID) (int64, error)
}

// TallyRepository holds the administrative bulk operations on aggregates
type TallyRepository interface {
	ApplyDistribution(ctx context.Context, electionID uuid.UUID, distribution map[uuid.UUID]int64, performedBy uuid.UUID) (int64, error)
	Reset(ctx context.Context, electionID uuid.UUID, performedBy uuid.UUID) (int64, error)
	Audit(ctx context.Context, electionID uuid.UUID) (*tally.Audit, error)
	Adjustments(ctx context.Context, electionID uuid.UUID) ([]*tally.Adjustment, error)
}

// SnapshotRepository stores frozen results
type SnapshotRepository interface {
	Save(ctx context.Context, s *tally.Snapshot) error
	GetByElection(ctx context.Context, electionID uuid.UUID) (*tally.Snapshot, error)
	SetObjectKey(ctx context.Context, id uuid.UUID, key string) error
}

// PaginationParams selects one page of a listing
type PaginationParams struct {
	Page     int
	PageSize int
	Status   *election.Status
}

// Normalize applies defaults and the maximum page size
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginatedResult is one page of items plus totals
type PaginatedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newPage[T any](items []T, total int64, p PaginationParams) *PaginatedResult[T] {
	return &PaginatedResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: int((total + int64(p.PageSize) - 1) / int64(p.PageSize)),
	}
}
