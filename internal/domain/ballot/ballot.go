package ballot

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReceiptPrefix = "rcpt_"
	receiptBytes  = 16
)

// Ballot is an immutable record that a voter chose a list in an election.
// Rows are only ever inserted; a tally reset is the single path that deletes them.
type Ballot struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ElectionID      uuid.UUID `json:"election_id" gorm:"type:uuid;not null"`
	CandidateListID uuid.UUID `json:"candidate_list_id" gorm:"type:uuid;not null"`
	VoterID         uuid.UUID `json:"voter_id" gorm:"type:uuid;not null"`
	Receipt         string    `json:"receipt" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Ballot) TableName() string {
	return "ballots"
}

// BeforeCreate sets a UUID before creating the record
func (b *Ballot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// New prepares a ballot with a fresh receipt
func New(electionID, listID, voterID uuid.UUID) (*Ballot, error) {
	receipt, err := NewReceipt()
	if err != nil {
		return nil, err
	}
	return &Ballot{
		ID:              uuid.New(),
		ElectionID:      electionID,
		CandidateListID: listID,
		VoterID:         voterID,
		Receipt:         receipt,
	}, nil
}

// NewReceipt returns an opaque token with no relation to the ballot contents
func NewReceipt() (string, error) {
	buf := make([]byte, receiptBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate receipt: %w", err)
	}
	return ReceiptPrefix + hex.EncodeToString(buf), nil
}

// ValidReceipt checks the receipt shape before it reaches storage
func ValidReceipt(receipt string) bool {
	raw, ok := strings.CutPrefix(receipt, ReceiptPrefix)
	if !ok || len(raw) != receiptBytes*2 {
		return false
	}
	_, err := hex.DecodeString(raw)
	return err == nil
}

// Verification is what anyone holding a receipt may learn: participation, never the choice
type Verification struct {
	Receipt       string    `json:"receipt"`
	ElectionID    uuid.UUID `json:"election_id"`
	ElectionTitle string    `json:"election_title"`
	CastAt        time.Time `json:"cast_at"`
}
