package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NegotiationService offers version updates on top of active assignments.
// The overlay goes none -> pending -> none through accept, decline or expiry.
type NegotiationService interface {
	PushUpdate(ctx context.Context, assignmentID, proID, newVersionID primitive.ObjectID, notes string) (*domain.Assignment, error)
	AcceptUpdate(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error)
	DeclineUpdate(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error)
}

type negotiationService struct {
	tx             repository.Transactor
	assignmentRepo repository.AssignmentRepository
	versionRepo    repository.VersionRepository
	materializer   SessionMaterializer
	events         *EventRecorder
	log            *logger.Logger
}

func NewNegotiationService(
	tx repository.Transactor,
	assignmentRepo repository.AssignmentRepository,
	versionRepo repository.VersionRepository,
	materializer SessionMaterializer,
	events *EventRecorder,
	log *logger.Logger,
) NegotiationService {
	return &negotiationService{
		tx:             tx,
		assignmentRepo: assignmentRepo,
		versionRepo:    versionRepo,
		materializer:   materializer,
		events:         events,
		log:            log,
	}
}

// PushUpdate offers newVersionID to the client. A newer push replaces an
// unanswered one.
func (s *negotiationService) PushUpdate(ctx context.Context, assignmentID, proID, newVersionID primitive.ObjectID, notes string) (*domain.Assignment, error) {
	// 1. Load and authorize
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.AssignedByProID != proID {
		return nil, ErrNotAssigningPro
	}
	if a.Status != domain.StatusActive {
		return nil, ErrAssignmentNotActive
	}

	// 2. Validate the offered version
	version, err := s.versionRepo.GetByID(ctx, newVersionID)
	if err != nil {
		return nil, mapRepoErr(err, ErrVersionNotFound)
	}
	if version.BlueprintID != a.BlueprintID {
		return nil, ErrVersionOtherRoutine
	}
	if !version.IsActive() {
		return nil, ErrVersionNotActive
	}
	if version.ID == a.CurrentVersionID {
		return nil, ErrUpdateIsCurrentVersion
	}

	// 3. Install the overlay while the assignment is still active
	at := now()
	update := domain.PendingUpdate{
		VersionID: version.ID,
		CreatedAt: at,
		Notes:     strings.TrimSpace(notes),
		PushedBy:  proID,
	}
	err = s.assignmentRepo.SetPendingUpdate(ctx, a.ID, update, at)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrAssignmentNotActive
	}
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}

	event := newEvent(a, domain.EventUpdatePushed, oid(proID))
	event.FromVersionID = oid(a.CurrentVersionID)
	event.ToVersionID = oid(version.ID)
	event.Notes = update.Notes
	event.CreatedAt = at
	s.events.Record(ctx, event)

	if a.PendingUpdate != nil {
		s.log.Info("Pending update replaced", "assignmentId", a.ID.Hex(), "previousVersionId", a.PendingUpdate.VersionID.Hex())
	}
	return s.assignmentRepo.GetByID(ctx, a.ID)
}

// AcceptUpdate switches the assignment to the pending version. Superseding the
// old sessions, materializing the new ones and promoting the version commit
// together; if the overlay moved in the meantime nothing is applied.
func (s *negotiationService) AcceptUpdate(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error) {
	a, expect, err := s.pendingForClient(ctx, assignmentID, clientID)
	if err != nil {
		return nil, err
	}

	at := now()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.materializer.SupersedeCurrent(ctx, a.ID, at); err != nil {
			return err
		}
		if _, err := s.materializer.Materialize(ctx, a.ID, expect.PendingVersionID, at); err != nil {
			return err
		}
		return s.assignmentRepo.ApplyPendingUpdate(ctx, a.ID, expect, at)
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrOverlayChanged
	}
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}

	event := newEvent(a, domain.EventUpdateAccepted, oid(clientID))
	event.FromVersionID = oid(expect.CurrentVersionID)
	event.ToVersionID = oid(expect.PendingVersionID)
	event.CreatedAt = at
	s.events.Record(ctx, event)

	s.log.Info("Pending update accepted",
		"assignmentId", a.ID.Hex(),
		"fromVersionId", expect.CurrentVersionID.Hex(),
		"toVersionId", expect.PendingVersionID.Hex(),
	)
	return s.assignmentRepo.GetByID(ctx, a.ID)
}

// DeclineUpdate drops the overlay; sessions and the current version stay as they are.
func (s *negotiationService) DeclineUpdate(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error) {
	a, expect, err := s.pendingForClient(ctx, assignmentID, clientID)
	if err != nil {
		return nil, err
	}

	at := now()
	err = s.assignmentRepo.ClearPendingUpdate(ctx, a.ID, expect, at)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrOverlayChanged
	}
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}

	event := newEvent(a, domain.EventUpdateDeclined, oid(clientID))
	event.FromVersionID = oid(expect.CurrentVersionID)
	event.ToVersionID = oid(expect.PendingVersionID)
	event.CreatedAt = at
	s.events.Record(ctx, event)

	return s.assignmentRepo.GetByID(ctx, a.ID)
}

// --- Helpers ---

func (s *negotiationService) load(ctx context.Context, assignmentID primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}
	return a, nil
}

// pendingForClient loads the assignment and the overlay state later writes are conditioned on.
func (s *negotiationService) pendingForClient(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, repository.OverlayExpectation, error) {
	var expect repository.OverlayExpectation

	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, expect, err
	}
	if a.ClientID != clientID {
		return nil, expect, ErrNotAssignmentClient
	}
	if a.Status != domain.StatusActive {
		return nil, expect, ErrAssignmentNotActive
	}
	if !a.HasPendingUpdate() {
		return nil, expect, ErrNoPendingUpdate
	}

	expect = repository.OverlayExpectation{
		CurrentVersionID: a.CurrentVersionID,
		PendingVersionID: a.PendingUpdate.VersionID,
		PendingCreatedAt: a.PendingUpdate.CreatedAt,
	}
	return a, expect, nil
}
