package election

import (
	"database/sql/driver"
	"fmt"
	"slices"
)

// Status represents the lifecycle stage of an election
type Status byte

const (
	StatusDraft Status = iota
	StatusScheduled
	StatusCampaign
	StatusVotingOpen
	StatusPaused
	StatusVotingClosed
	StatusResultsPublished
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []Status{
	StatusDraft,
	StatusScheduled,
	StatusCampaign,
	StatusVotingOpen,
	StatusPaused,
	StatusVotingClosed,
	StatusResultsPublished,
}

var transitions = map[Status][]Status{
	StatusDraft:            {StatusScheduled, StatusCampaign},
	StatusScheduled:        {StatusCampaign, StatusDraft},
	StatusCampaign:         {StatusVotingOpen, StatusScheduled},
	StatusVotingOpen:       {StatusPaused, StatusVotingClosed},
	StatusPaused:           {StatusVotingOpen, StatusVotingClosed},
	StatusVotingClosed:     {StatusResultsPublished},
	StatusResultsPublished: {}, // NOTE: terminal, results are read-only
}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusScheduled:
		return "scheduled"
	case StatusCampaign:
		return "campaign"
	case StatusVotingOpen:
		return "voting_open"
	case StatusPaused:
		return "paused"
	case StatusVotingClosed:
		return "voting_closed"
	case StatusResultsPublished:
		return "results_published"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s Status) CanTransitionTo(next Status) bool {
	allowed, exists := transitions[s]
	if !exists {
		return false
	}
	return slices.Contains(allowed, next)
}

// NextStatuses returns the statuses reachable from s
func (s Status) NextStatuses() []Status {
	return slices.Clone(transitions[s])
}

// AcceptsBallots is true only while voting is open
func (s Status) AcceptsBallots() bool {
	return s == StatusVotingOpen
}

// Editable reports whether lists, candidates and metadata may still change
func (s Status) Editable() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusCampaign, StatusPaused:
		return true
	}
	return false
}

// ResultsVisible reports whether tallies may be read in this status
func (s Status) ResultsVisible() bool {
	switch s {
	case StatusVotingOpen, StatusPaused, StatusVotingClosed, StatusResultsPublished:
		return true
	}
	return false
}

// MarshalJSON implements the json.Marshaler interface
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Status) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	status, valid := StatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid status: %s", str)
	}
	*s = status
	return nil
}

// StatusFromString converts a string to a Status
func StatusFromString(s string) (Status, bool) {
	switch s {
	case "draft":
		return StatusDraft, true
	case "scheduled":
		return StatusScheduled, true
	case "campaign":
		return StatusCampaign, true
	case "voting_open":
		return StatusVotingOpen, true
	case "paused":
		return StatusPaused, true
	case "voting_closed":
		return StatusVotingClosed, true
	case "results_published":
		return StatusResultsPublished, true
	default:
		return StatusDraft, false
	}
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *Status) Scan(value interface{}) error {
	if value == nil {
		*s = StatusDraft
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", value)
	}

	status, valid := StatusFromString(str)
	if !valid {
		return fmt.Errorf("invalid status value: %s", str)
	}
	*s = status
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}
