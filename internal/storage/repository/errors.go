package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/storage/migrations"
)

// Constraint names declared in the core tables migration
const (
	constraintVoterElection = "ballots_voter_election_key"
	constraintListElection  = "ballots_list_election_fkey"
	constraintReceipt       = "ballots_receipt_key"
	constraintListName      = "candidate_lists_election_name_key"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgRaiseException      = "P0001"
)

// ErrReceiptCollision is returned when a generated receipt already exists.
// Callers regenerate the receipt and try again.
var ErrReceiptCollision = errors.New("receipt collision")

type violation int

const (
	violationNone violation = iota
	violationVoterElection
	violationListElection
	violationReceipt
	violationListName
	violationElectionNotOpen
	violationBallotImmutable
	violationUnique
	violationForeignKey
	violationCheck
)

// classify maps a storage error onto the constraint or trigger that produced it.
// PostgreSQL reports SQLSTATE and constraint names; SQLite only reports text.
func classify(err error) violation {
	if err == nil {
		return violationNone
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintVoterElection:
				return violationVoterElection
			case constraintReceipt:
				return violationReceipt
			case constraintListName:
				return violationListName
			}
			return violationUnique
		case pgForeignKeyViolation:
			if pgErr.ConstraintName == constraintListElection {
				return violationListElection
			}
			return violationForeignKey
		case pgCheckViolation:
			return violationCheck
		case pgRaiseException:
			switch pgErr.Message {
			case migrations.RaiseElectionNotOpen:
				return violationElectionNotOpen
			case migrations.RaiseBallotImmutable:
				return violationBallotImmutable
			}
		}
		return violationNone
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, migrations.RaiseElectionNotOpen):
		return violationElectionNotOpen
	case strings.Contains(msg, migrations.RaiseBallotImmutable):
		return violationBallotImmutable
	case strings.Contains(msg, "UNIQUE constraint failed: ballots.voter_id"):
		return violationVoterElection
	case strings.Contains(msg, "UNIQUE constraint failed: ballots.receipt"):
		return violationReceipt
	case strings.Contains(msg, "UNIQUE constraint failed: candidate_lists.election_id, candidate_lists.name"):
		return violationListName
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return violationUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		// SQLite does not name the foreign key; the ballot insert path treats it as a pairing failure
		return violationForeignKey
	case strings.Contains(msg, "CHECK constraint failed"):
		return violationCheck
	}
	return violationNone
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
