package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/archive"
	"github.com/gravadigital/urna-api/internal/domain/ballot"
	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/domain/tally"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/metrics"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/policy"
	"github.com/gravadigital/urna-api/internal/storage/repository"
)

// receiptAttempts bounds how many fresh receipts a single cast may try
const receiptAttempts = 3

// VotingService maneja la emisión de votos, los resultados y el ciclo de vida de la elección
type VotingService struct {
	store    *repository.Container
	policy   *policy.Evaluator
	notifier *notify.Notifier
	archiver archive.Archiver
	metrics  *metrics.MetricService
	now      func() time.Time
	log      *log.Logger
	audit    *log.Logger
}

// NewVotingService crea una nueva instancia del servicio de votación
func NewVotingService(deps Dependencies) *VotingService {
	deps = deps.withDefaults()
	return &VotingService{
		store:    deps.Store,
		policy:   deps.Policy,
		notifier: deps.Notifier,
		archiver: deps.Archiver,
		metrics:  deps.Metrics,
		now:      deps.Now,
		log:      logger.Service("voting"),
		audit:    logger.Audit(),
	}
}

// CastResult is what the voter gets back: the receipt, never an echo of the choice
type CastResult struct {
	BallotID   uuid.UUID `json:"ballot_id"`
	ElectionID uuid.UUID `json:"election_id"`
	Receipt    string    `json:"receipt"`
	CastAt     time.Time `json:"cast_at"`
}

// CastVote records one ballot for the session's voter. The pre-checks give
// precise errors on the common paths; the storage constraints stay the
// authority when two requests race.
func (s *VotingService) CastVote(ctx context.Context, sess session.Session, electionID, listID uuid.UUID) (*CastResult, error) {
	start := time.Now()
	res, err := s.castVote(ctx, sess, electionID, listID)
	s.metrics.ObserveCastVoteDuration(time.Since(start))

	if err != nil {
		kind := common.KindOf(err)
		s.metrics.IncVoteRejection(kind.String())
		if kind == common.KindInternal {
			s.log.Error("Cast vote failed", "election_id", electionID, "error", err)
		} else {
			s.log.Info("Cast vote rejected", "election_id", electionID, "kind", kind)
		}
		return nil, err
	}

	s.metrics.IncVotesCast()
	ev := notify.NewEvent(notify.KindBallotRecorded, electionID)
	if e, err := s.store.Elections().GetByID(ctx, electionID); err == nil {
		ev.TotalVotes = e.TotalVotes
	}
	s.notifier.Notify(ctx, ev)
	return res, nil
}

func (s *VotingService) castVote(ctx context.Context, sess session.Session, electionID, listID uuid.UUID) (*CastResult, error) {
	if !sess.Authenticated() {
		return nil, common.E(common.KindNotAuthenticated, "authentication required")
	}

	e, err := s.store.Elections().GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if !e.Status.AcceptsBallots() {
		return nil, common.E(common.KindElectionNotOpen, "voting is not currently open")
	}

	list, err := s.store.Candidates().GetList(ctx, listID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	listInElection := err == nil && list.ElectionID == electionID
	if !listInElection {
		return nil, common.E(common.KindInvalidList, "candidate list does not belong to this election")
	}

	subject := policy.Subject{
		ElectionID:     electionID,
		OwnerID:        sess.UserID,
		ElectionStatus: e.Status,
		ListInElection: listInElection,
	}
	if err := s.policy.Authorize(sess, policy.ResourceBallot, policy.ActionCreate, subject); err != nil {
		return nil, err
	}

	voted, err := s.store.Ballots().HasVoted(ctx, electionID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, common.E(common.KindAlreadyVoted, "voter has already cast a ballot in this election")
	}

	var stored *ballot.Ballot
	err = retry.Do(func() error {
		b, err := ballot.New(electionID, listID, sess.UserID)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if err := s.store.Ballots().Insert(ctx, b); err != nil {
			return err
		}
		stored = b
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(receiptAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, repository.ErrReceiptCollision)
		}),
	)
	if err != nil {
		if errors.Is(err, repository.ErrReceiptCollision) {
			return nil, fmt.Errorf("could not allocate a unique receipt: %w", err)
		}
		return nil, err
	}

	return &CastResult{
		BallotID:   stored.ID,
		ElectionID: electionID,
		Receipt:    stored.Receipt,
		CastAt:     stored.CreatedAt,
	}, nil
}

// GetElection returns the election with its lists, candidates and counters
func (s *VotingService) GetElection(ctx context.Context, sess session.Session, id uuid.UUID) (*election.Election, error) {
	if err := s.policy.Authorize(sess, policy.ResourceElection, policy.ActionRead, policy.Subject{ElectionID: id}); err != nil {
		return nil, err
	}
	return s.store.Elections().GetWithLists(ctx, id)
}

// GetElectionSummary returns the election row alone, without lists
func (s *VotingService) GetElectionSummary(ctx context.Context, sess session.Session, id uuid.UUID) (*election.Election, error) {
	if err := s.policy.Authorize(sess, policy.ResourceElection, policy.ActionRead, policy.Subject{ElectionID: id}); err != nil {
		return nil, err
	}
	return s.store.Elections().GetByID(ctx, id)
}

func (s *VotingService) ListElections(ctx context.Context, sess session.Session, params repository.PaginationParams) (*repository.PaginatedResult[*election.Election], error) {
	if err := s.policy.Authorize(sess, policy.ResourceElection, policy.ActionRead, policy.Subject{}); err != nil {
		return nil, err
	}
	return s.store.Elections().List(ctx, params)
}

// GetElectionResults returns live results while voting runs and the frozen
// snapshot once results are published.
func (s *VotingService) GetElectionResults(ctx context.Context, sess session.Session, id uuid.UUID) (*tally.Results, error) {
	if err := s.policy.Authorize(sess, policy.ResourceElection, policy.ActionRead, policy.Subject{ElectionID: id}); err != nil {
		return nil, err
	}

	e, err := s.store.Elections().GetWithLists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Status.ResultsVisible() {
		return nil, common.E(common.KindResultsUnavailable, "results are not available while the election is %s", e.Status)
	}

	if e.Status == election.StatusResultsPublished {
		snap, err := s.store.Snapshots().GetByElection(ctx, id)
		switch {
		case err == nil:
			var frozen tally.Results
			if err := json.Unmarshal([]byte(snap.Payload), &frozen); err == nil {
				return &frozen, nil
			}
			s.log.Warn("Stored snapshot is unreadable, computing live results", "election_id", id)
		case !errors.Is(err, common.ErrNotFound):
			return nil, err
		}
	}

	return tally.Compute(e, s.now()), nil
}

// ChangeElectionStatus applies one lifecycle transition. Entering
// results_published freezes the results in the same transaction as the status change.
func (s *VotingService) ChangeElectionStatus(ctx context.Context, sess session.Session, id uuid.UUID, to election.Status) (*election.Election, error) {
	if err := s.policy.Authorize(sess, policy.ResourceElection, policy.ActionUpdate, policy.Subject{ElectionID: id}); err != nil {
		return nil, err
	}

	current, err := s.store.Elections().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := current.Status
	if !from.CanTransitionTo(to) {
		return nil, common.E(common.KindInvalidTransition, "cannot move election from %s to %s", from, to)
	}

	var snapshot *tally.Snapshot
	err = s.store.WithTx(ctx, func(tx *repository.Container) error {
		if err := tx.Elections().TransitionStatus(ctx, id, from, to); err != nil {
			return err
		}
		if to != election.StatusResultsPublished {
			return nil
		}

		e, err := tx.Elections().GetWithLists(ctx, id)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(tally.Compute(e, s.now()))
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		snapshot = &tally.Snapshot{
			ElectionID:  id,
			Payload:     string(payload),
			PublishedAt: s.now().UTC(),
		}
		return tx.Snapshots().Save(ctx, snapshot)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Info("Election status changed", "election_id", id, "from", from, "to", to, "by", sess.UserID)

	if snapshot != nil {
		s.archiveSnapshot(ctx, snapshot)
	}

	updated, err := s.store.Elections().GetWithLists(ctx, id)
	if err != nil {
		return nil, err
	}

	ev := notify.NewEvent(notify.KindElectionChanged, id)
	ev.Status = to.String()
	ev.TotalVotes = updated.TotalVotes
	s.notifier.Notify(ctx, ev)

	return updated, nil
}

// archiveSnapshot copies the frozen results to object storage. A failure leaves
// the snapshot without an object key; the status change already committed.
func (s *VotingService) archiveSnapshot(ctx context.Context, snap *tally.Snapshot) {
	ctx = context.WithoutCancel(ctx)

	key, err := s.archiver.Store(ctx, snap.ElectionID, []byte(snap.Payload))
	if err != nil {
		s.log.Error("Failed to archive results", "election_id", snap.ElectionID, "error", err)
		return
	}
	if key == "" {
		return
	}
	if err := s.store.Snapshots().SetObjectKey(ctx, snap.ID, key); err != nil {
		s.log.Error("Failed to record archive key", "election_id", snap.ElectionID, "error", err)
	}
}

// SimulationResult reports a bulk distribution
type SimulationResult struct {
	ElectionID uuid.UUID `json:"election_id"`
	VotesAdded int64     `json:"votes_added"`
}

// ApplySimulatedDistribution adds synthetic counts to list counters without
// writing ballots. Afterwards the aggregates no longer match the ballot log;
// AuditTally reports the difference.
func (s *VotingService) ApplySimulatedDistribution(ctx context.Context, sess session.Session, id uuid.UUID, distribution map[uuid.UUID]int64) (*SimulationResult, error) {
	if err := s.authorizeBulk(ctx, sess, id); err != nil {
		return nil, err
	}

	added, err := s.store.Tallies().ApplyDistribution(ctx, id, distribution, sess.UserID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncTallyAdjustment(string(tally.AdjustmentSimulation))
	s.audit.Warn("Simulated distribution applied", "election_id", id, "votes_added", added, "by", sess.UserID)
	s.notifyTally(ctx, id)

	return &SimulationResult{ElectionID: id, VotesAdded: added}, nil
}

// ResetResult reports a reset
type ResetResult struct {
	ElectionID     uuid.UUID `json:"election_id"`
	BallotsRemoved int64     `json:"ballots_removed"`
}

// ResetElectionVotes deletes every ballot of the election and zeroes its counters
func (s *VotingService) ResetElectionVotes(ctx context.Context, sess session.Session, id uuid.UUID) (*ResetResult, error) {
	if err := s.authorizeBulk(ctx, sess, id); err != nil {
		return nil, err
	}

	removed, err := s.store.Tallies().Reset(ctx, id, sess.UserID)
	if err != nil {
		return nil, err
	}

	s.metrics.IncTallyAdjustment(string(tally.AdjustmentReset))
	s.audit.Warn("Election votes reset", "election_id", id, "ballots_removed", removed, "by", sess.UserID)
	s.notifyTally(ctx, id)

	return &ResetResult{ElectionID: id, BallotsRemoved: removed}, nil
}

func (s *VotingService) authorizeBulk(ctx context.Context, sess session.Session, id uuid.UUID) error {
	if err := s.policy.Authorize(sess, policy.ResourceTally, policy.ActionBulkTally, policy.Subject{ElectionID: id}); err != nil {
		return err
	}

	e, err := s.store.Elections().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Status == election.StatusResultsPublished {
		return common.E(common.KindElectionLocked, "results are published and frozen")
	}
	return nil
}

func (s *VotingService) notifyTally(ctx context.Context, id uuid.UUID) {
	ev := notify.NewEvent(notify.KindTallyChanged, id)
	if e, err := s.store.Elections().GetByID(ctx, id); err == nil {
		ev.TotalVotes = e.TotalVotes
	}
	s.notifier.Notify(ctx, ev)
}

// MyBallot is the caller's own ballot as shown back to them
type MyBallot struct {
	ElectionID      uuid.UUID `json:"election_id"`
	CandidateListID uuid.UUID `json:"candidate_list_id"`
	Receipt         string    `json:"receipt"`
	CastAt          time.Time `json:"cast_at"`
}

// GetMyBallot returns the caller's ballot in the election
func (s *VotingService) GetMyBallot(ctx context.Context, sess session.Session, electionID uuid.UUID) (*MyBallot, error) {
	subject := policy.Subject{ElectionID: electionID, OwnerID: sess.UserID}
	if err := s.policy.Authorize(sess, policy.ResourceBallot, policy.ActionRead, subject); err != nil {
		return nil, err
	}

	b, err := s.store.Ballots().GetByVoter(ctx, electionID, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &MyBallot{
		ElectionID:      b.ElectionID,
		CandidateListID: b.CandidateListID,
		Receipt:         b.Receipt,
		CastAt:          b.CreatedAt,
	}, nil
}

// HasVoted tells the caller whether they already voted in the election
func (s *VotingService) HasVoted(ctx context.Context, sess session.Session, electionID uuid.UUID) (bool, error) {
	subject := policy.Subject{ElectionID: electionID, OwnerID: sess.UserID}
	if err := s.policy.Authorize(sess, policy.ResourceBallot, policy.ActionRead, subject); err != nil {
		return false, err
	}
	return s.store.Ballots().HasVoted(ctx, electionID, sess.UserID)
}

// VerifyReceipt confirms that a receipt belongs to a recorded ballot. It is
// public and reveals participation only.
func (s *VotingService) VerifyReceipt(ctx context.Context, receipt string) (*ballot.Verification, error) {
	if !ballot.ValidReceipt(receipt) {
		return nil, common.E(common.KindValidation, "malformed receipt")
	}

	b, err := s.store.Ballots().GetByReceipt(ctx, receipt)
	if err != nil {
		return nil, err
	}
	e, err := s.store.Elections().GetByID(ctx, b.ElectionID)
	if err != nil {
		return nil, err
	}

	return &ballot.Verification{
		Receipt:       b.Receipt,
		ElectionID:    e.ID,
		ElectionTitle: e.Title,
		CastAt:        b.CreatedAt,
	}, nil
}

// AuditReport compares the counters with the ballot log
type AuditReport struct {
	*tally.Audit
	CountersAgree bool                `json:"counters_agree"`
	LedgerAgrees  bool                `json:"ledger_agrees"`
	Consistent    bool                `json:"consistent"`
	Adjustments   []*tally.Adjustment `json:"adjustments"`
}

func (s *VotingService) AuditTally(ctx context.Context, sess session.Session, electionID uuid.UUID) (*AuditReport, error) {
	if err := s.policy.Authorize(sess, policy.ResourceTally, policy.ActionRead, policy.Subject{ElectionID: electionID}); err != nil {
		return nil, err
	}

	a, err := s.store.Tallies().Audit(ctx, electionID)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.store.Tallies().Adjustments(ctx, electionID)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Audit:         a,
		CountersAgree: a.CountersAgree(),
		LedgerAgrees:  a.LedgerAgrees(),
		Consistent:    a.Consistent(),
		Adjustments:   adjustments,
	}
	if !report.LedgerAgrees {
		s.audit.Warn("Tally drift detected", "election_id", electionID,
			"total_votes", a.TotalVotes, "list_votes", a.ListVotes, "ballot_count", a.BallotCount)
	}
	return report, nil
}
