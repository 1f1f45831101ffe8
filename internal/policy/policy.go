// Package policy decides which caller may touch which rows. Services consult it
// before every repository call; anything without a rule is denied.
package policy

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/logger"
)

type Resource byte

const (
	ResourceElection Resource = iota + 1
	ResourceCandidateList
	ResourceCandidate
	ResourceBallot
	ResourceTally
)

func (r Resource) String() string {
	switch r {
	case ResourceElection:
		return "election"
	case ResourceCandidateList:
		return "candidate_list"
	case ResourceCandidate:
		return "candidate"
	case ResourceBallot:
		return "ballot"
	case ResourceTally:
		return "tally"
	}
	return "unknown"
}

type Action byte

const (
	ActionRead Action = iota + 1
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionBulkTally
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionBulkTally:
		return "bulk_tally"
	}
	return "unknown"
}

// Subject carries the row attributes a rule may inspect
type Subject struct {
	ElectionID     uuid.UUID
	OwnerID        uuid.UUID
	ElectionStatus election.Status
	ListInElection bool
}

// Rule grants an action on a resource when Allow returns true
type Rule struct {
	Resource Resource
	Action   Action
	Allow    func(s session.Session, subj Subject) bool
}

// DenialRecorder receives one call per denied request
type DenialRecorder interface {
	IncPolicyDenial(resource, action string)
}

type ruleKey struct {
	resource Resource
	action   Action
}

// Evaluator holds the rule table
type Evaluator struct {
	rules    map[ruleKey]Rule
	recorder DenialRecorder
	log      *log.Logger
}

// NewEvaluator builds an evaluator with the platform rules
func NewEvaluator(recorder DenialRecorder) *Evaluator {
	return NewEvaluatorWithRules(recorder, DefaultRules()...)
}

// NewEvaluatorWithRules builds an evaluator from an explicit rule table
func NewEvaluatorWithRules(recorder DenialRecorder, rules ...Rule) *Evaluator {
	e := &Evaluator{
		rules:    make(map[ruleKey]Rule, len(rules)),
		recorder: recorder,
		log:      logger.Audit(),
	}
	for _, r := range rules {
		e.rules[ruleKey{r.Resource, r.Action}] = r
	}
	return e
}

// Authorize returns nil when the session may perform the action on the subject
func (e *Evaluator) Authorize(s session.Session, resource Resource, action Action, subj Subject) error {
	if !s.Authenticated() {
		e.deny(s, resource, action, subj, "unauthenticated")
		return common.E(common.KindNotAuthenticated, "authentication required")
	}

	rule, ok := e.rules[ruleKey{resource, action}]
	if !ok {
		e.deny(s, resource, action, subj, "no rule")
		return common.E(common.KindUnauthorized, "%s %s is not permitted", action, resource)
	}
	if !rule.Allow(s, subj) {
		e.deny(s, resource, action, subj, "rule rejected")
		return common.E(common.KindUnauthorized, "%s %s is not permitted", action, resource)
	}
	return nil
}

// Allowed is Authorize without the error value, used for read-side filtering
func (e *Evaluator) Allowed(s session.Session, resource Resource, action Action, subj Subject) bool {
	return e.Authorize(s, resource, action, subj) == nil
}

func (e *Evaluator) deny(s session.Session, resource Resource, action Action, subj Subject, reason string) {
	e.log.Warn("Authorization denied",
		"user_id", s.UserID,
		"role", s.Role,
		"resource", resource,
		"action", action,
		"election_id", subj.ElectionID,
		"reason", reason,
	)
	if e.recorder != nil {
		e.recorder.IncPolicyDenial(resource.String(), action.String())
	}
}
