package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubDeliversPerElectionAndGlobal(t *testing.T) {
	hub := NewHub(4)
	electionA, electionB := uuid.New(), uuid.New()

	chA, cancelA := hub.Subscribe(electionA)
	defer cancelA()
	chAll, cancelAll := hub.Subscribe(uuid.Nil)
	defer cancelAll()

	require.NoError(t, hub.Publish(context.Background(), NewEvent(KindBallotRecorded, electionA)))
	hub.Broadcast(NewEvent(KindTallyChanged, electionB))

	got := receive(t, chA)
	assert.Equal(t, KindBallotRecorded, got.Kind)
	assert.Equal(t, electionA, got.ElectionID)

	assert.Equal(t, electionA, receive(t, chAll).ElectionID)
	assert.Equal(t, electionB, receive(t, chAll).ElectionID)

	select {
	case e := <-chA:
		t.Fatalf("unexpected event for another election: %+v", e)
	default:
	}
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewHub(2)
	id := uuid.New()
	ch, cancel := hub.Subscribe(id)
	defer cancel()

	for i := 0; i < 5; i++ {
		hub.Broadcast(NewEvent(KindBallotRecorded, id))
	}

	assert.Len(t, ch, 2)
	assert.Equal(t, int64(3), hub.Dropped())
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub(1)
	id := uuid.New()
	ch, cancel := hub.Subscribe(id)
	assert.Equal(t, 1, hub.Subscribers(id))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers(id))

	// publishing after the last subscriber left is harmless
	hub.Broadcast(NewEvent(KindElectionChanged, id))
}

func TestHubClose(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe(uuid.New())
	require.NoError(t, hub.Close())

	_, open := <-ch
	assert.False(t, open)
	cancel()

	late, _ := hub.Subscribe(uuid.New())
	_, open = <-late
	assert.False(t, open)
}

func TestHubConcurrentPublishers(t *testing.T) {
	hub := NewHub(1000)
	id := uuid.New()
	ch, cancel := hub.Subscribe(id)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Broadcast(NewEvent(KindBallotRecorded, id))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ch, 500)
}

func TestEventRoundTrip(t *testing.T) {
	e := NewEvent(KindTallyChanged, uuid.New())
	e.TotalVotes = 42

	payload, err := e.encode()
	require.NoError(t, err)

	decoded, err := decodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, e.ElectionID, decoded.ElectionID)
	assert.Equal(t, int64(42), decoded.TotalVotes)

	_, err = decodeEvent([]byte(`{"kind":"ballot_recorded"}`))
	assert.Error(t, err)
}

func TestEventOmitsUnknownTotal(t *testing.T) {
	payload, err := NewEvent(KindElectionChanged, uuid.New()).encode()
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "total_votes")
}

type flakyPublisher struct {
	failures int
	calls    int
}

func (f *flakyPublisher) Publish(ctx context.Context, e Event) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection reset")
	}
	return nil
}

type countingRecorder struct {
	published, failed int
}

func (c *countingRecorder) IncNotificationPublished(string) { c.published++ }
func (c *countingRecorder) IncNotificationFailed(string)    { c.failed++ }

func TestNotifierRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	rec := &countingRecorder{}
	n := NewNotifier(pub, "test", rec)

	n.Notify(context.Background(), NewEvent(KindBallotRecorded, uuid.New()))

	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, 1, rec.published)
	assert.Zero(t, rec.failed)
}

func TestNotifierGivesUpQuietly(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	rec := &countingRecorder{}
	n := NewNotifier(pub, "test", rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, NewEvent(KindBallotRecorded, uuid.New()))

	assert.Equal(t, 3, pub.calls, "a cancelled request context does not stop the publish")
	assert.Equal(t, 1, rec.failed)

	var nilNotifier *Notifier
	nilNotifier.Notify(context.Background(), NewEvent(KindBallotRecorded, uuid.New()))
}
