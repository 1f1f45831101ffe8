// Package testutil opens migrated in-memory stores and seeds fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/storage/migrations"
	"github.com/gravadigital/urna-api/internal/storage/repository"
	"github.com/gravadigital/urna-api/internal/storage/sqlite"
)

// NewStore returns a container over a fresh in-memory database with every
// migration applied, triggers included.
func NewStore(t testing.TB) *repository.Container {
	t.Helper()

	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(db))

	c := repository.NewContainer(db)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

// Fixture is a seeded election with its lists
type Fixture struct {
	Election *election.Election
	Lists    []*election.CandidateList
}

// SeedElection stores an election in the given status with one list per name.
// The status is written directly so tests can start anywhere in the lifecycle.
func SeedElection(t testing.TB, c *repository.Container, status election.Status, listNames ...string) *Fixture {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	e := election.NewElection(fmt.Sprintf("Centro de Estudiantes %s", uuid.NewString()[:8]),
		"Elección anual", uuid.New(), now.Add(-time.Hour), now.Add(24*time.Hour), 100)
	e.Status = status
	require.NoError(t, c.Elections().Create(ctx, e))

	f := &Fixture{Election: e}
	for _, name := range listNames {
		l := election.NewCandidateList(e.ID, name, "", "")
		require.NoError(t, c.Candidates().CreateList(ctx, l))
		f.Lists = append(f.Lists, l)
	}
	return f
}

// SetStatus overwrites the stored status, bypassing the transition rules
func SetStatus(t testing.TB, db *gorm.DB, electionID uuid.UUID, status election.Status) {
	t.Helper()
	require.NoError(t, db.Model(&election.Election{}).
		Where("id = ?", electionID).
		Update("status", status).Error)
}

func Voter() session.Session {
	return session.Session{UserID: uuid.New(), Email: "votante@example.edu", Role: session.RoleVoter}
}

func Committee() session.Session {
	return session.Session{UserID: uuid.New(), Email: "junta@example.edu", Role: session.RoleCommittee}
}

// Admin returns an admin session; elevated also carries the service credential
func Admin(elevated bool) session.Session {
	return session.Session{UserID: uuid.New(), Email: "admin@example.edu", Role: session.RoleAdmin, Elevated: elevated}
}
