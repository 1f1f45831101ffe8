package tally

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"gorm.io/gorm"
)

// Results is the read model shown on result boards
type Results struct {
	ElectionID        uuid.UUID       `json:"election_id"`
	Title             string          `json:"title"`
	Status            election.Status `json:"status"`
	TotalVotes        int64           `json:"total_votes"`
	EligibleVoters    int64           `json:"eligible_voters"`
	ParticipationRate float64         `json:"participation_rate"`
	Lists             []ListResult    `json:"lists"`
	// Candidate shares split each list's votes evenly; they are not a per-candidate count.
	CandidateSharesApproximate bool      `json:"candidate_shares_approximate"`
	GeneratedAt                time.Time `json:"generated_at"`
}

type ListResult struct {
	ListID     uuid.UUID        `json:"list_id"`
	Name       string           `json:"name"`
	Color      string           `json:"color"`
	Votes      int64            `json:"votes"`
	Percentage float64          `json:"percentage"`
	Rank       int              `json:"rank"`
	Candidates []CandidateShare `json:"candidates"`
}

type CandidateShare struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	FullName    string    `json:"full_name"`
	Position    string    `json:"position"`
	Share       float64   `json:"share"`
	Approximate bool      `json:"approximate"`
}

// Compute builds the results view from an election loaded with its lists and candidates
func Compute(e *election.Election, now time.Time) *Results {
	res := &Results{
		ElectionID:                 e.ID,
		Title:                      e.Title,
		Status:                     e.Status,
		TotalVotes:                 e.TotalVotes,
		EligibleVoters:             e.EligibleVoters,
		CandidateSharesApproximate: true,
		GeneratedAt:                now.UTC(),
		Lists:                      make([]ListResult, 0, len(e.Lists)),
	}
	if e.EligibleVoters > 0 {
		res.ParticipationRate = float64(e.TotalVotes) / float64(e.EligibleVoters)
	}

	for _, l := range e.Lists {
		lr := ListResult{
			ListID:     l.ID,
			Name:       l.Name,
			Color:      l.Color,
			Votes:      l.Votes,
			Candidates: make([]CandidateShare, 0, len(l.Candidates)),
		}
		if e.TotalVotes > 0 {
			lr.Percentage = float64(l.Votes) * 100 / float64(e.TotalVotes)
		}
		if n := len(l.Candidates); n > 0 {
			share := float64(l.Votes) / float64(n)
			for _, c := range l.Candidates {
				lr.Candidates = append(lr.Candidates, CandidateShare{
					CandidateID: c.ID,
					FullName:    c.FullName,
					Position:    c.Position,
					Share:       share,
					Approximate: true,
				})
			}
		}
		res.Lists = append(res.Lists, lr)
	}

	sort.SliceStable(res.Lists, func(i, j int) bool {
		if res.Lists[i].Votes != res.Lists[j].Votes {
			return res.Lists[i].Votes > res.Lists[j].Votes
		}
		return res.Lists[i].Name < res.Lists[j].Name
	})

	// tied lists share a rank
	for i := range res.Lists {
		if i > 0 && res.Lists[i].Votes == res.Lists[i-1].Votes {
			res.Lists[i].Rank = res.Lists[i-1].Rank
		} else {
			res.Lists[i].Rank = i + 1
		}
	}

	return res
}

// AdjustmentKind names a bulk tally operation
type AdjustmentKind string

const (
	AdjustmentSimulation AdjustmentKind = "simulation"
	AdjustmentReset      AdjustmentKind = "reset"
)

// Adjustment is the audit log entry written by bulk tally operations
type Adjustment struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ElectionID     uuid.UUID      `json:"election_id" gorm:"type:uuid;not null"`
	Kind           AdjustmentKind `json:"kind" gorm:"not null"`
	VotesAdded     int64          `json:"votes_added" gorm:"not null"`
	BallotsRemoved int64          `json:"ballots_removed" gorm:"not null"`
	PerformedBy    uuid.UUID      `json:"performed_by" gorm:"type:uuid;not null"`
	InProgress     bool           `json:"-" gorm:"not null"`
	Superseded     bool           `json:"superseded" gorm:"not null"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (Adjustment) TableName() string {
	return "tally_adjustments"
}

func (a *Adjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Audit is one row of the election_tally_audit view
type Audit struct {
	ElectionID     uuid.UUID `json:"election_id"`
	TotalVotes     int64     `json:"total_votes"`
	ListVotes      int64     `json:"list_votes"`
	BallotCount    int64     `json:"ballot_count"`
	SimulatedVotes int64     `json:"simulated_votes"`
}

// CountersAgree is true when the election counter matches the sum of list counters
func (a *Audit) CountersAgree() bool {
	return a.TotalVotes == a.ListVotes
}

// LedgerAgrees is true when the counters are explained by ballots plus recorded simulations
func (a *Audit) LedgerAgrees() bool {
	return a.ListVotes == a.BallotCount+a.SimulatedVotes
}

// Consistent means counters equal the ballot log with no simulated votes mixed in
func (a *Audit) Consistent() bool {
	return a.CountersAgree() && a.ListVotes == a.BallotCount
}

// Snapshot is the frozen result set stored when results are published
type Snapshot struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ElectionID  uuid.UUID `json:"election_id" gorm:"type:uuid;not null"`
	Payload     string    `json:"payload" gorm:"not null"`
	ObjectKey   string    `json:"object_key" gorm:"not null"`
	PublishedAt time.Time `json:"published_at" gorm:"not null"`
}

func (Snapshot) TableName() string {
	return "results_snapshots"
}

func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
