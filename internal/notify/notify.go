// Package notify fans out election change events to interested clients.
// Delivery is best effort: consumers must tolerate lost events and re-sync
// from the read endpoints.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names what changed
type Kind string

const (
	KindElectionChanged Kind = "election_changed"
	KindBallotRecorded  Kind = "ballot_recorded"
	KindTallyChanged    Kind = "tally_changed"
)

// Event is the change notification. It never carries ballot contents.
type Event struct {
	Kind       Kind      `json:"kind"`
	ElectionID uuid.UUID `json:"election_id"`
	At         time.Time `json:"at"`
	TotalVotes int64     `json:"total_votes,omitempty"`
	Status     string    `json:"status,omitempty"`
}

// NewEvent stamps an event with the current time
func NewEvent(kind Kind, electionID uuid.UUID) Event {
	return Event{Kind: kind, ElectionID: electionID, At: time.Now().UTC()}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

func decodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("invalid event payload: %w", err)
	}
	if e.ElectionID == uuid.Nil {
		return Event{}, fmt.Errorf("event without election id")
	}
	return e, nil
}

// Publisher sends an event to every subscriber, possibly on other instances
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber hands out event streams. uuid.Nil subscribes to every election.
// The returned function releases the subscription and closes the channel.
type Subscriber interface {
	Subscribe(electionID uuid.UUID) (<-chan Event, func())
}

// Broker is a complete notification backend
type Broker interface {
	Publisher
	Subscriber
	Name() string
	Close() error
}
