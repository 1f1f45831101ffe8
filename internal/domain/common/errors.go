package common

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures so transports can map them without string matching
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindNotAuthenticated
	KindUnauthorized
	KindAlreadyVoted
	KindInvalidList
	KindElectionNotOpen
	KindInvalidTransition
	KindElectionLocked
	KindResultsUnavailable
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindNotFound:           "not_found",
	KindValidation:         "validation",
	KindNotAuthenticated:   "not_authenticated",
	KindUnauthorized:       "unauthorized",
	KindAlreadyVoted:       "already_voted",
	KindInvalidList:        "invalid_list",
	KindElectionNotOpen:    "election_not_open",
	KindInvalidTransition:  "invalid_transition",
	KindElectionLocked:     "election_locked",
	KindResultsUnavailable: "results_unavailable",
}

var kindMessages = map[Kind]string{
	KindInternal:           "internal error",
	KindNotFound:           "resource not found",
	KindValidation:         "invalid input",
	KindNotAuthenticated:   "authentication required",
	KindUnauthorized:       "operation not permitted",
	KindAlreadyVoted:       "a ballot was already cast in this election",
	KindInvalidList:        "candidate list does not belong to this election",
	KindElectionNotOpen:    "election is not open for voting",
	KindInvalidTransition:  "status transition not allowed",
	KindElectionLocked:     "election can no longer be modified",
	KindResultsUnavailable: "results are not available yet",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the typed error returned by services and repositories
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = kindMessages[e.Kind]
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// PublicMessage is the text safe to show to API clients
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal || e.Message == "" {
		return kindMessages[e.Kind]
	}
	return e.Message
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotAuthenticated   = &Error{Kind: KindNotAuthenticated}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrAlreadyVoted       = &Error{Kind: KindAlreadyVoted}
	ErrInvalidList        = &Error{Kind: KindInvalidList}
	ErrElectionNotOpen    = &Error{Kind: KindElectionNotOpen}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrElectionLocked     = &Error{Kind: KindElectionLocked}
	ErrResultsUnavailable = &Error{Kind: KindResultsUnavailable}
)

// E builds a typed error with a caller-facing message
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in the chain, KindInternal otherwise
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
