package election

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultListColor = "#888888"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CandidateList is a slate competing in exactly one election
type CandidateList struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	ElectionID  uuid.UUID   `json:"election_id" gorm:"type:uuid;not null"`
	Name        string      `json:"name" gorm:"not null"`
	Color       string      `json:"color" gorm:"not null"`
	Description string      `json:"description" gorm:"not null"`
	Votes       int64       `json:"votes" gorm:"not null"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
	Candidates  []Candidate `json:"candidates,omitempty" gorm:"foreignKey:ListID"`
}

func (CandidateList) TableName() string {
	return "candidate_lists"
}

func (l *CandidateList) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// NewCandidateList creates an empty list for an election
func NewCandidateList(electionID uuid.UUID, name, color, description string) *CandidateList {
	if color == "" {
		color = DefaultListColor
	}
	return &CandidateList{
		ID:          uuid.New(),
		ElectionID:  electionID,
		Name:        strings.TrimSpace(name),
		Color:       color,
		Description: strings.TrimSpace(description),
	}
}

func (l *CandidateList) Validate() error {
	if l.ElectionID == uuid.Nil {
		return fmt.Errorf("election_id is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(l.Name) > 120 {
		return fmt.Errorf("name must be at most 120 characters")
	}
	if !hexColor.MatchString(l.Color) {
		return fmt.Errorf("color must be a #rrggbb hex value")
	}
	return nil
}

// Candidate is a person running on a list
type Candidate struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ListID    uuid.UUID `json:"list_id" gorm:"type:uuid;not null"`
	FullName  string    `json:"full_name" gorm:"not null"`
	StudentID string    `json:"student_id" gorm:"not null"`
	Email     string    `json:"email" gorm:"not null"`
	Position  string    `json:"position" gorm:"not null"`
	Biography string    `json:"biography" gorm:"not null"`
	Platform  string    `json:"platform" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Candidate) Validate() error {
	if c.ListID == uuid.Nil {
		return fmt.Errorf("list_id is required")
	}
	if strings.TrimSpace(c.FullName) == "" {
		return fmt.Errorf("full_name is required")
	}
	if len(c.FullName) > 160 {
		return fmt.Errorf("full_name must be at most 160 characters")
	}
	return nil
}
