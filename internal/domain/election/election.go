package election

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Election is a single student election and its aggregate vote counter
type Election struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Title          string          `json:"title" gorm:"not null"`
	Description    string          `json:"description" gorm:"not null"`
	Status         Status          `json:"status" gorm:"not null"`
	StartDate      time.Time       `json:"start_date" gorm:"not null"`
	EndDate        time.Time       `json:"end_date" gorm:"not null"`
	TotalVotes     int64           `json:"total_votes" gorm:"not null"`
	EligibleVoters int64           `json:"eligible_voters" gorm:"not null"`
	CreatedBy      uuid.UUID       `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	Lists          []CandidateList `json:"lists,omitempty" gorm:"foreignKey:ElectionID"`
}

// TableName overrides the table name used by GORM
func (Election) TableName() string {
	return "elections"
}

// BeforeCreate sets a UUID before creating the record
func (e *Election) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewElection creates a draft election
func NewElection(title, description string, createdBy uuid.UUID, startDate, endDate time.Time, eligibleVoters int64) *Election {
	return &Election{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(title),
		Description:    strings.TrimSpace(description),
		Status:         StatusDraft,
		StartDate:      startDate.UTC(),
		EndDate:        endDate.UTC(),
		EligibleVoters: eligibleVoters,
		CreatedBy:      createdBy,
	}
}

// CanTransitionTo checks if the election can move to a new status
func (e *Election) CanTransitionTo(newStatus Status) bool {
	return e.Status.CanTransitionTo(newStatus)
}

// UpdateStatus updates the status if the transition is valid
func (e *Election) UpdateStatus(newStatus Status) error {
	if !e.CanTransitionTo(newStatus) {
		return fmt.Errorf("cannot transition from %s to %s", e.Status, newStatus)
	}
	e.Status = newStatus
	return nil
}

// Validate checks if the election data is valid
func (e *Election) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(e.Title) > 200 {
		return fmt.Errorf("title must be at most 200 characters")
	}
	if e.CreatedBy == uuid.Nil {
		return fmt.Errorf("created_by is required")
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	if e.EligibleVoters < 0 {
		return fmt.Errorf("eligible_voters cannot be negative")
	}
	return nil
}

// FindList returns the list with the given id, if it belongs to this election
func (e *Election) FindList(listID uuid.UUID) (*CandidateList, bool) {
	for i := range e.Lists {
		if e.Lists[i].ID == listID {
			return &e.Lists[i], true
		}
	}
	return nil, false
}
