package services

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/urna-api/internal/domain/common"
	"github.com/gravadigital/urna-api/internal/domain/election"
	"github.com/gravadigital/urna-api/internal/domain/session"
	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/policy"
	"github.com/gravadigital/urna-api/internal/storage/repository"
	"github.com/gravadigital/urna-api/internal/validation"
)

// ElectionService maneja la administración de elecciones, listas y candidatos
type ElectionService struct {
	store     *repository.Container
	policy    *policy.Evaluator
	notifier  *notify.Notifier
	elections validation.ElectionValidation
	lists     validation.ListValidation
	cands     validation.CandidateValidation
	log       *log.Logger
}

// NewElectionService crea una nueva instancia del servicio de elecciones
func NewElectionService(deps Dependencies) *ElectionService {
	deps = deps.withDefaults()
	return &ElectionService{
		store:    deps.Store,
		policy:   deps.Policy,
		notifier: deps.Notifier,
		log:      logger.Service("elections"),
	}
}

// CreateElectionRequest representa una solicitud para crear una elección
type CreateElectionRequest struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	EndDate        time.Time `json:"end_date" binding:"required"`
	EligibleVoters int64     `json:"eligible_voters"`
}

// UpdateElectionRequest only changes the fields that are present
type UpdateElectionRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	EligibleVoters *int64     `json:"eligible_voters"`
}

// ListRequest representa una solicitud para crear una lista
type ListRequest struct {
	Name        string `json:"name" binding:"required"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type UpdateListRequest struct {
	Name        *string `json:"name"`
	Color       *string `json:"color"`
	Description *string `json:"description"`
}

// CandidateRequest representa una solicitud para crear un candidato
type CandidateRequest struct {
	FullName  string `json:"full_name" binding:"required"`
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Position  string `json:"position"`
	Biography string `json:"biography"`
	Platform  string `json:"platform"`
}

type UpdateCandidateRequest struct {
	FullName  *string `json:"full_name"`
	StudentID *string `json:"student_id"`
	Email     *string `json:"email"`
	Position  *string `json:"position"`
	Biography *string `json:"biography"`
	Platform  *string `json:"platform"`
}

// CreateElection crea una nueva elección en estado draft
func (s *ElectionService) CreateElection(ctx context.Context, sess session.Session, req CreateElectionRequest) (*election.Election, error) {
	if err := s.policy.Authorize(sess, policy.ResourceElection, policy.ActionCreate, policy.Subject{}); err != nil {
		return nil, err
	}

	// Validaciones
	if err := s.elections.ValidateTitle(req.Title); err != nil {
		return nil, err
	}
	if err := s.elections.ValidateDescription(req.Description); err != nil {
		return nil, err
	}
	if err := validation.ValidateDateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotInPast(req.StartDate); err != nil {
		return nil, err
	}
	if err := s.elections.ValidateEligibleVoters(req.EligibleVoters); err != nil {
		return nil, err
	}

	e := election.NewElection(req.Title, req.Description, sess.UserID, req.StartDate, req.EndDate, req.EligibleVoters)
	if err := s.store.Elections().Create(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info("Election created", "election_id", e.ID, "by", sess.UserID)
	s.changed(ctx, e.ID)
	return e, nil
}

// UpdateElection edita los datos de una elección todavía editable
func (s *ElectionService) UpdateElection(ctx context.Context, sess session.Session, id uuid.UUID, req UpdateElectionRequest) (*election.Election, error) {
	if err := s.policy.Authorize(sess, policy.ResourceElection, policy.ActionUpdate, policy.Subject{ElectionID: id}); err != nil {
		return nil, err
	}

	err := s.whileEditable(ctx, id, func(tx *repository.Container, e *election.Election) error {
		if req.Title != nil {
			if err := s.elections.ValidateTitle(*req.Title); err != nil {
				return err
			}
			e.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			if err := s.elections.ValidateDescription(*req.Description); err != nil {
				return err
			}
			e.Description = strings.TrimSpace(*req.Description)
		}
		if req.StartDate != nil {
			e.StartDate = req.StartDate.UTC()
		}
		if req.EndDate != nil {
			e.EndDate = req.EndDate.UTC()
		}
		if err := validation.ValidateDateRange(e.StartDate, e.EndDate); err != nil {
			return err
		}
		if req.EligibleVoters != nil {
			if err := s.elections.ValidateEligibleVoters(*req.EligibleVoters); err != nil {
				return err
			}
			e.EligibleVoters = *req.EligibleVoters
		}
		return tx.Elections().UpdateDetails(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, id)
	return s.store.Elections().GetWithLists(ctx, id)
}

// CreateList agrega una lista a una elección editable
func (s *ElectionService) CreateList(ctx context.Context, sess session.Session, electionID uuid.UUID, req ListRequest) (*election.CandidateList, error) {
	if err := s.policy.Authorize(sess, policy.ResourceCandidateList, policy.ActionCreate, policy.Subject{ElectionID: electionID}); err != nil {
		return nil, err
	}
	if err := s.lists.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := s.lists.ValidateColor(req.Color); err != nil {
		return nil, err
	}

	l := election.NewCandidateList(electionID, req.Name, req.Color, req.Description)
	err := s.whileEditable(ctx, electionID, func(tx *repository.Container, _ *election.Election) error {
		return tx.Candidates().CreateList(ctx, l)
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, electionID)
	return l, nil
}

func (s *ElectionService) UpdateList(ctx context.Context, sess session.Session, listID uuid.UUID, req UpdateListRequest) (*election.CandidateList, error) {
	l, err := s.store.Candidates().GetList(ctx, listID)
	if err != nil {
		return nil, s.hideFromNonAdmins(sess, policy.ResourceCandidateList, policy.ActionUpdate, err)
	}
	if err := s.policy.Authorize(sess, policy.ResourceCandidateList, policy.ActionUpdate, policy.Subject{ElectionID: l.ElectionID}); err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := s.lists.ValidateName(*req.Name); err != nil {
			return nil, err
		}
		l.Name = strings.TrimSpace(*req.Name)
	}
	if req.Color != nil {
		if err := s.lists.ValidateColor(*req.Color); err != nil {
			return nil, err
		}
		l.Color = *req.Color
		if l.Color == "" {
			l.Color = election.DefaultListColor
		}
	}
	if req.Description != nil {
		l.Description = strings.TrimSpace(*req.Description)
	}

	err = s.whileEditable(ctx, l.ElectionID, func(tx *repository.Container, _ *election.Election) error {
		return tx.Candidates().UpdateList(ctx, l)
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, l.ElectionID)
	return s.store.Candidates().GetList(ctx, listID)
}

func (s *ElectionService) DeleteList(ctx context.Context, sess session.Session, listID uuid.UUID) error {
	l, err := s.store.Candidates().GetList(ctx, listID)
	if err != nil {
		return s.hideFromNonAdmins(sess, policy.ResourceCandidateList, policy.ActionDelete, err)
	}
	if err := s.policy.Authorize(sess, policy.ResourceCandidateList, policy.ActionDelete, policy.Subject{ElectionID: l.ElectionID}); err != nil {
		return err
	}
	err = s.whileEditable(ctx, l.ElectionID, func(tx *repository.Container, _ *election.Election) error {
		return tx.Candidates().DeleteList(ctx, listID)
	})
	if err != nil {
		return err
	}

	s.changed(ctx, l.ElectionID)
	return nil
}

// CreateCandidate agrega un candidato a una lista
func (s *ElectionService) CreateCandidate(ctx context.Context, sess session.Session, listID uuid.UUID, req CandidateRequest) (*election.Candidate, error) {
	l, err := s.store.Candidates().GetList(ctx, listID)
	if err != nil {
		return nil, s.hideFromNonAdmins(sess, policy.ResourceCandidate, policy.ActionCreate, err)
	}
	if err := s.policy.Authorize(sess, policy.ResourceCandidate, policy.ActionCreate, policy.Subject{ElectionID: l.ElectionID}); err != nil {
		return nil, err
	}
	if err := s.cands.ValidateFullName(req.FullName); err != nil {
		return nil, err
	}
	if err := s.cands.ValidateEmail(req.Email); err != nil {
		return nil, err
	}

	c := &election.Candidate{
		ID:        uuid.New(),
		ListID:    listID,
		FullName:  strings.TrimSpace(req.FullName),
		StudentID: strings.TrimSpace(req.StudentID),
		Email:     strings.TrimSpace(req.Email),
		Position:  strings.TrimSpace(req.Position),
		Biography: req.Biography,
		Platform:  req.Platform,
	}
	err = s.whileEditable(ctx, l.ElectionID, func(tx *repository.Container, _ *election.Election) error {
		return tx.Candidates().CreateCandidate(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, l.ElectionID)
	return c, nil
}

func (s *ElectionService) UpdateCandidate(ctx context.Context, sess session.Session, candidateID uuid.UUID, req UpdateCandidateRequest) (*election.Candidate, error) {
	c, l, err := s.candidateWithList(ctx, candidateID)
	if err != nil {
		return nil, s.hideFromNonAdmins(sess, policy.ResourceCandidate, policy.ActionUpdate, err)
	}
	if err := s.policy.Authorize(sess, policy.ResourceCandidate, policy.ActionUpdate, policy.Subject{ElectionID: l.ElectionID}); err != nil {
		return nil, err
	}
	if req.FullName != nil {
		if err := s.cands.ValidateFullName(*req.FullName); err != nil {
			return nil, err
		}
		c.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		if err := s.cands.ValidateEmail(*req.Email); err != nil {
			return nil, err
		}
		c.Email = strings.TrimSpace(*req.Email)
	}
	if req.StudentID != nil {
		c.StudentID = strings.TrimSpace(*req.StudentID)
	}
	if req.Position != nil {
		c.Position = strings.TrimSpace(*req.Position)
	}
	if req.Biography != nil {
		c.Biography = *req.Biography
	}
	if req.Platform != nil {
		c.Platform = *req.Platform
	}

	err = s.whileEditable(ctx, l.ElectionID, func(tx *repository.Container, _ *election.Election) error {
		return tx.Candidates().UpdateCandidate(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, l.ElectionID)
	return c, nil
}

func (s *ElectionService) DeleteCandidate(ctx context.Context, sess session.Session, candidateID uuid.UUID) error {
	_, l, err := s.candidateWithList(ctx, candidateID)
	if err != nil {
		return s.hideFromNonAdmins(sess, policy.ResourceCandidate, policy.ActionDelete, err)
	}
	if err := s.policy.Authorize(sess, policy.ResourceCandidate, policy.ActionDelete, policy.Subject{ElectionID: l.ElectionID}); err != nil {
		return err
	}
	err = s.whileEditable(ctx, l.ElectionID, func(tx *repository.Container, _ *election.Election) error {
		return tx.Candidates().DeleteCandidate(ctx, candidateID)
	})
	if err != nil {
		return err
	}

	s.changed(ctx, l.ElectionID)
	return nil
}

func (s *ElectionService) candidateWithList(ctx context.Context, candidateID uuid.UUID) (*election.Candidate, *election.CandidateList, error) {
	c, err := s.store.Candidates().GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, nil, err
	}
	l, err := s.store.Candidates().GetList(ctx, c.ListID)
	if err != nil {
		return nil, nil, err
	}
	return c, l, nil
}

// whileEditable runs write in one transaction with the election row locked, so
// a concurrent status change cannot slip between the check and the write.
func (s *ElectionService) whileEditable(ctx context.Context, id uuid.UUID, write func(tx *repository.Container, e *election.Election) error) error {
	return s.store.WithTx(ctx, func(tx *repository.Container) error {
		e, err := tx.Elections().Lock(ctx, id)
		if err != nil {
			return err
		}
		if !e.Status.Editable() {
			return common.E(common.KindElectionLocked, "election cannot be edited while %s", e.Status)
		}
		return write(tx, e)
	})
}

// hideFromNonAdmins reports a lookup failure only to callers allowed to act;
// everyone else gets the authorization error.
func (s *ElectionService) hideFromNonAdmins(sess session.Session, r policy.Resource, a policy.Action, lookupErr error) error {
	if err := s.policy.Authorize(sess, r, a, policy.Subject{}); err != nil {
		return err
	}
	return lookupErr
}

func (s *ElectionService) changed(ctx context.Context, electionID uuid.UUID) {
	s.notifier.Notify(ctx, notify.NewEvent(notify.KindElectionChanged, electionID))
}
