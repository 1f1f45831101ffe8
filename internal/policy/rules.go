package policy

import (
	"github.com/gravadigital/urna-api/internal/domain/session"
)

func authenticated(s session.Session, _ Subject) bool {
	return s.Authenticated()
}

func adminOnly(s session.Session, _ Subject) bool {
	switch s.Role {
	case session.RoleAdmin:
		return true
	case session.RoleCommittee, session.RoleVoter:
		return false
	}
	return false
}

func ownerOrStaff(s session.Session, subj Subject) bool {
	switch s.Role {
	case session.RoleAdmin, session.RoleCommittee:
		return true
	case session.RoleVoter:
		return subj.OwnerID == s.UserID
	}
	return false
}

func castOwnBallot(s session.Session, subj Subject) bool {
	return subj.OwnerID == s.UserID &&
		subj.ElectionStatus.AcceptsBallots() &&
		subj.ListInElection
}

func staffOnly(s session.Session, _ Subject) bool {
	switch s.Role {
	case session.RoleAdmin, session.RoleCommittee:
		return true
	case session.RoleVoter:
		return false
	}
	return false
}

func elevatedAdmin(s session.Session, subj Subject) bool {
	return adminOnly(s, subj) && s.Elevated
}

// DefaultRules is the platform rule table. Ballots have no update or delete
// rule; the only deletion path is a tally reset.
func DefaultRules() []Rule {
	rules := []Rule{
		{ResourceBallot, ActionRead, ownerOrStaff},
		{ResourceBallot, ActionCreate, castOwnBallot},
		{ResourceTally, ActionRead, staffOnly},
		{ResourceTally, ActionBulkTally, elevatedAdmin},
	}

	for _, r := range []Resource{ResourceElection, ResourceCandidateList, ResourceCandidate} {
		rules = append(rules,
			Rule{r, ActionRead, authenticated},
			Rule{r, ActionCreate, adminOnly},
			Rule{r, ActionUpdate, adminOnly},
			Rule{r, ActionDelete, adminOnly},
		)
	}
	return rules
}
