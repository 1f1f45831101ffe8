package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/stretchr/testify/assert"
)

type denialCounter struct {
	calls []string
}

func (d *denialCounter) IncPolicyDenial(resource, action string) {
	d.calls = append(d.calls, resource+":"+action)
}

var (
	voter     = session.Session{UserID: uuid.New(), Role: session.RoleVoter}
	committee = session.Session{UserID: uuid.New(), Role: session.RoleCommittee}
	admin     = session.Session{UserID: uuid.New(), Role: session.RoleAdmin}
	elevated  = session.Session{UserID: uuid.New(), Role: session.RoleAdmin, Elevated: true}
)

func TestCatalogRules(t *testing.T) {
	e := NewEvaluator(nil)

	for _, r := range []Resource{ResourceElection, ResourceCandidateList, ResourceCandidate} {
		for _, s := range []session.Session{voter, committee, admin} {
			assert.NoError(t, e.Authorize(s, r, ActionRead, Subject{}), "%s read by %s", r, s.Role)
		}
		for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
			assert.NoError(t, e.Authorize(admin, r, a, Subject{}))
			assert.ErrorIs(t, e.Authorize(voter, r, a, Subject{}), common.ErrUnauthorized)
			assert.ErrorIs(t, e.Authorize(committee, r, a, Subject{}), common.ErrUnauthorized)
		}
	}
}

func TestAnonymousIsNotAuthenticated(t *testing.T) {
	e := NewEvaluator(nil)
	err := e.Authorize(session.Anonymous(), ResourceElection, ActionRead, Subject{})
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestBallotCreate(t *testing.T) {
	e := NewEvaluator(nil)
	open := Subject{OwnerID: voter.UserID, ElectionStatus: election.StatusVotingOpen, ListInElection: true}

	assert.NoError(t, e.Authorize(voter, ResourceBallot, ActionCreate, open))

	other := open
	other.OwnerID = uuid.New()
	assert.ErrorIs(t, e.Authorize(voter, ResourceBallot, ActionCreate, other), common.ErrUnauthorized, "cannot vote as someone else")

	foreignList := open
	foreignList.ListInElection = false
	assert.ErrorIs(t, e.Authorize(voter, ResourceBallot, ActionCreate, foreignList), common.ErrUnauthorized)

	for _, st := range election.AllStatuses {
		if st == election.StatusVotingOpen {
			continue
		}
		closed := open
		closed.ElectionStatus = st
		assert.ErrorIs(t, e.Authorize(voter, ResourceBallot, ActionCreate, closed), common.ErrUnauthorized, st.String())
	}
}

func TestBallotsHaveNoUpdateOrDeleteRule(t *testing.T) {
	e := NewEvaluator(nil)
	subj := Subject{OwnerID: elevated.UserID}
	for _, a := range []Action{ActionUpdate, ActionDelete} {
		assert.ErrorIs(t, e.Authorize(elevated, ResourceBallot, a, subj), common.ErrUnauthorized)
		assert.ErrorIs(t, e.Authorize(voter, ResourceBallot, a, Subject{OwnerID: voter.UserID}), common.ErrUnauthorized)
	}
}

func TestBallotRead(t *testing.T) {
	e := NewEvaluator(nil)
	own := Subject{OwnerID: voter.UserID}
	foreign := Subject{OwnerID: uuid.New()}

	assert.NoError(t, e.Authorize(voter, ResourceBallot, ActionRead, own))
	assert.ErrorIs(t, e.Authorize(voter, ResourceBallot, ActionRead, foreign), common.ErrUnauthorized)
	assert.NoError(t, e.Authorize(committee, ResourceBallot, ActionRead, foreign))
	assert.NoError(t, e.Authorize(admin, ResourceBallot, ActionRead, foreign))
}

func TestBulkTallyNeedsElevatedAdmin(t *testing.T) {
	e := NewEvaluator(nil)

	assert.NoError(t, e.Authorize(elevated, ResourceTally, ActionBulkTally, Subject{}))
	assert.ErrorIs(t, e.Authorize(admin, ResourceTally, ActionBulkTally, Subject{}), common.ErrUnauthorized)
	assert.ErrorIs(t, e.Authorize(voter, ResourceTally, ActionBulkTally, Subject{}), common.ErrUnauthorized)

	elevatedVoter := voter
	elevatedVoter.Elevated = true
	assert.ErrorIs(t, e.Authorize(elevatedVoter, ResourceTally, ActionBulkTally, Subject{}), common.ErrUnauthorized)
}

func TestMissingRuleDenies(t *testing.T) {
	counter := &denialCounter{}
	e := NewEvaluatorWithRules(counter)

	err := e.Authorize(admin, ResourceElection, ActionRead, Subject{})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, []string{"election:read"}, counter.calls)
	assert.False(t, e.Allowed(admin, ResourceElection, ActionRead, Subject{}))
}
