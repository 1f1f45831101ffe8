//go:build integration
// +build integration

package main

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/services"
	"github.com/gravadigital/urna-api/internal/storage"
	"github.com/gravadigital/urna-api/internal/storage/postgres"
	"github.com/gravadigital/urna-api/internal/storage/repository"
	"github.com/gravadigital/urna-api/internal/testutil"
)

// Integration tests that require a real PostgreSQL database
// Run with: go test -tags=integration ./cmd/api/

func postgresConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.DB.Driver = "postgres"
	if testDB := os.Getenv("TEST_DB_NAME"); testDB != "" {
		cfg.DB.Name = testDB
	}
	return cfg
}

func openStore(t *testing.T) (*config.Config, *repository.Container) {
	t.Helper()
	cfg := postgresConfig(t)

	factory, err := storage.FactoryFor(cfg)
	require.NoError(t, err)
	store, err := factory.CreateContainer(context.Background(), cfg)
	require.NoError(t, err, "Should be able to connect to and migrate the test database")
	t.Cleanup(func() { _ = store.Close() })
	return cfg, store
}

func TestDatabaseHealth(t *testing.T) {
	_, store := openStore(t)
	assert.NoError(t, store.Health(context.Background()))
	assert.Equal(t, "postgres", store.Info()["dialect"])
}

func TestCollectStats(t *testing.T) {
	_, store := openStore(t)
	report, err := postgres.CollectStats(context.Background(), store.DB())
	require.NoError(t, err)
	assert.NotEmpty(t, report.Tables)
	assert.NotEmpty(t, report.Indexes)
}

func TestConcurrentCastsOnPostgres(t *testing.T) {
	_, store := openStore(t)
	svc := services.New(services.Dependencies{Store: store})
	f := testutil.SeedElection(t, store, election.StatusVotingOpen, "Lista Azul", "Lista Verde")
	voter := testutil.Voter()

	const attempts = 50
	var ok, already atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Voting.CastVote(context.Background(), voter, f.Election.ID, f.Lists[i%2].ID)
			switch {
			case err == nil:
				ok.Add(1)
			case common.KindOf(err) == common.KindAlreadyVoted:
				already.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(attempts-1), already.Load())

	audit, err := store.Tallies().Audit(context.Background(), f.Election.ID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent())
}

func TestCastRacingPause(t *testing.T) {
	_, store := openStore(t)
	svc := services.New(services.Dependencies{Store: store})
	f := testutil.SeedElection(t, store, election.StatusVotingOpen, "Lista Azul")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Voting.CastVote(ctx, testutil.Voter(), f.Election.ID, f.Lists[0].ID)
		}()
	}
	_, err := svc.Voting.ChangeElectionStatus(ctx, testutil.Admin(false), f.Election.ID, election.StatusPaused)
	require.NoError(t, err)
	wg.Wait()

	// every ballot that made it in was counted, none slipped past the pause unrecorded
	audit, err := store.Tallies().Audit(ctx, f.Election.ID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent())

	_, err = svc.Voting.CastVote(ctx, testutil.Voter(), f.Election.ID, f.Lists[0].ID)
	assert.ErrorIs(t, err, common.ErrElectionNotOpen)
}

func TestPostgresNotifications(t *testing.T) {
	cfg, store := openStore(t)
	cfg.Notify.Backend = notify.BackendPostgres
	cfg.Notify.Channel = "urna_events_test"

	broker, err := notify.New(context.Background(), cfg, store.DB())
	require.NoError(t, err)
	defer broker.Close()

	id := uuid.New()
	events, cancel := broker.Subscribe(id)
	defer cancel()

	require.NoError(t, broker.Publish(context.Background(), notify.NewEvent(notify.KindTallyChanged, id)))

	select {
	case e := <-events:
		assert.Equal(t, notify.KindTallyChanged, e.Kind)
		assert.Equal(t, id, e.ElectionID)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not received")
	}
}

func TestRedisNotifications(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	hub := notify.NewHub(notify.DefaultBuffer)
	broker, err := notify.NewRedisBroker(context.Background(), notify.RedisOptions{Addr: addr}, hub)
	require.NoError(t, err)
	defer broker.Close()

	id := uuid.New()
	events, cancel := broker.Subscribe(id)
	defer cancel()

	require.NoError(t, broker.Publish(context.Background(), notify.NewEvent(notify.KindElectionChanged, id)))

	select {
	case e := <-events:
		assert.Equal(t, notify.KindElectionChanged, e.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("notification not received")
	}
}
