package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrAssignmentChanged = newError(KindConcurrencyConflict, "assignment changed concurrently")

// ProgrammeSummary describes the programme behind an assignment for display.
type ProgrammeSummary struct {
	BlueprintID   primitive.ObjectID `json:"blueprintId"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Goal          string             `json:"goal,omitempty"`
	VersionID     primitive.ObjectID `json:"versionId"`
	VersionNumber int                `json:"versionNumber"`
	DaysPerWeek   int                `json:"daysPerWeek"`
}

// AssignmentDetail is the read model of one assignment for the workout log.
type AssignmentDetail struct {
	Assignment domain.Assignment            `json:"assignment"`
	Programme  ProgrammeSummary             `json:"programme"`
	Sessions   []domain.MaterializedSession `json:"sessions"`
}

// ClientAssignments splits a client's open assignments by status.
type ClientAssignments struct {
	Pending []domain.Assignment `json:"pending"`
	Active  []domain.Assignment `json:"active"`
}

// --- Service Interface ---
type AssignmentService interface {
	Create(ctx context.Context, proID, clientID, versionID primitive.ObjectID, dates domain.AssignmentDates, notes string) (*domain.Assignment, error)
	Accept(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error)
	Reject(ctx context.Context, assignmentID, clientID primitive.ObjectID, reason string) (*domain.Assignment, error)
	ChangeStatus(ctx context.Context, assignmentID, actorID primitive.ObjectID, newStatus domain.AssignmentStatus) (*domain.Assignment, error)

	GetAssignmentWithSessions(ctx context.Context, actorID, assignmentID primitive.ObjectID) (*AssignmentDetail, error)
	GetClientAssignments(ctx context.Context, clientID primitive.ObjectID) (*ClientAssignments, error)
	ListForProfessional(ctx context.Context, proID primitive.ObjectID) ([]domain.Assignment, error)

	EventsForAssignment(ctx context.Context, actorID, assignmentID primitive.ObjectID) ([]domain.AssignmentEvent, error)
	EventsForClient(ctx context.Context, clientID primitive.ObjectID, since *time.Time) ([]domain.AssignmentEvent, error)
}

// AssignmentDeps groups the collaborators of the assignment service.
type AssignmentDeps struct {
	Tx            repository.Transactor
	Assignments   repository.AssignmentRepository
	Versions      repository.VersionRepository
	Blueprints    repository.BlueprintRepository
	Events        repository.EventRepository
	Relationships RelationshipVerifier
	Goals         GoalLookup // optional
	Materializer  SessionMaterializer
	Recorder      *EventRecorder
	Sweeper       Sweeper
	// SweepOnRead runs the client-scoped cleanup and expiry before listing a
	// client's assignments.
	SweepOnRead bool
	Log         *logger.Logger
}

// --- Service Implementation ---

type assignmentService struct {
	AssignmentDeps
}

func NewAssignmentService(deps AssignmentDeps) AssignmentService {
	return &assignmentService{AssignmentDeps: deps}
}

// Create offers an active version to a client the professional coaches.
func (s *assignmentService) Create(ctx context.Context, proID, clientID, versionID primitive.ObjectID, dates domain.AssignmentDates, notes string) (*domain.Assignment, error) {
	// 1. Validate Inputs
	if proID == primitive.NilObjectID || clientID == primitive.NilObjectID || versionID == primitive.NilObjectID {
		return nil, Validation("professional ID, client ID and version ID are required")
	}
	if dates.StartDate != nil && dates.EndDate != nil && dates.EndDate.Before(*dates.StartDate) {
		return nil, Validation("end date cannot be before start date")
	}

	// 2. Verify the relationship
	ok, err := s.Relationships.IsActiveRelationship(ctx, proID, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoActiveRelationship
	}

	// 3. Verify the version can be offered
	version, err := s.Versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, mapRepoErr(err, ErrVersionNotFound)
	}
	blueprint, err := s.Blueprints.GetByID(ctx, version.BlueprintID)
	if err != nil {
		return nil, mapRepoErr(err, ErrBlueprintNotFound)
	}
	if blueprint.OwnerID != proID && !blueprint.IsTemplate {
		return nil, ErrBlueprintAccessDenied
	}
	if !version.IsActive() {
		return nil, ErrVersionNotActive
	}

	// 4. Create pending assignment
	at := now()
	assignment := &domain.Assignment{
		ClientID:         clientID,
		AssignedByProID:  proID,
		BlueprintID:      version.BlueprintID,
		CurrentVersionID: version.ID,
		Status:           domain.StatusPendingAcceptance,
		StartDate:        dates.StartDate,
		EndDate:          dates.EndDate,
		Notes:            notes,
		StatusChangedAt:  at,
	}
	if _, err := s.Assignments.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("creating assignment: %w", err)
	}

	event := newEvent(assignment, domain.EventCreated, oid(proID))
	event.NewStatus = domain.StatusPendingAcceptance
	event.ToVersionID = oid(version.ID)
	event.Notes = notes
	s.Recorder.Record(ctx, event)

	s.Log.Info("Assignment offered", "assignmentId", assignment.ID.Hex(), "clientId", clientID.Hex(), "versionId", versionID.Hex())
	return s.Assignments.GetByID(ctx, assignment.ID)
}

// Accept activates a pending assignment and materializes its sessions in one transaction.
func (s *assignmentService) Accept(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.clientAssignment(ctx, assignmentID, clientID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusPendingAcceptance {
		return nil, ErrAssignmentNotPending
	}

	at := now()
	err = s.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		err := s.Assignments.TransitionStatus(ctx, a.ID, domain.StatusPendingAcceptance, domain.StatusActive,
			repository.StatusChange{At: at, AcceptedAt: &at})
		if err != nil {
			return err
		}
		_, err = s.Materializer.Materialize(ctx, a.ID, a.CurrentVersionID, at)
		return err
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrAssignmentNotPending
	}
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}

	event := newEvent(a, domain.EventAccepted, oid(clientID))
	event.OldStatus = domain.StatusPendingAcceptance
	event.NewStatus = domain.StatusActive
	event.ToVersionID = oid(a.CurrentVersionID)
	event.CreatedAt = at
	s.Recorder.Record(ctx, event)

	return s.Assignments.GetByID(ctx, a.ID)
}

// Reject declines a pending offer. The row is purged after the retention window.
func (s *assignmentService) Reject(ctx context.Context, assignmentID, clientID primitive.ObjectID, reason string) (*domain.Assignment, error) {
	a, err := s.clientAssignment(ctx, assignmentID, clientID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.StatusPendingAcceptance {
		return nil, ErrAssignmentNotPending
	}

	at := now()
	change := repository.StatusChange{At: at, RejectedAt: &at}
	if reason != "" {
		change.Notes = &reason
	}
	err = s.Assignments.TransitionStatus(ctx, a.ID, domain.StatusPendingAcceptance, domain.StatusRejected, change)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrAssignmentNotPending
	}
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}

	event := newEvent(a, domain.EventRejected, oid(clientID))
	event.OldStatus = domain.StatusPendingAcceptance
	event.NewStatus = domain.StatusRejected
	event.Notes = reason
	event.CreatedAt = at
	s.Recorder.Record(ctx, event)

	return s.Assignments.GetByID(ctx, a.ID)
}

// ChangeStatus pauses, resumes, completes or cancels an accepted assignment.
// Leaving active drops any pending update in the same conditional write.
func (s *assignmentService) ChangeStatus(ctx context.Context, assignmentID, actorID primitive.ObjectID, newStatus domain.AssignmentStatus) (*domain.Assignment, error) {
	a, err := s.participantAssignment(ctx, assignmentID, actorID)
	if err != nil {
		return nil, err
	}
	if a.Status == newStatus {
		return a, nil
	}
	// Offers are answered through Accept/Reject only.
	if a.Status == domain.StatusPendingAcceptance || !domain.CanTransition(a.Status, newStatus) {
		return nil, ErrStatusTransition
	}

	at := now()
	change := repository.StatusChange{At: at, ClearPending: a.Status == domain.StatusActive}
	err = s.Assignments.TransitionStatus(ctx, a.ID, a.Status, newStatus, change)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrAssignmentChanged
	}
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}

	event := newEvent(a, domain.EventStatusChanged, oid(actorID))
	event.OldStatus = a.Status
	event.NewStatus = newStatus
	if change.ClearPending && a.PendingUpdate != nil {
		event.ToVersionID = oid(a.PendingUpdate.VersionID)
		event.Notes = "pending update withdrawn"
	}
	event.CreatedAt = at
	s.Recorder.Record(ctx, event)

	return s.Assignments.GetByID(ctx, a.ID)
}

// GetAssignmentWithSessions returns the assignment, its programme summary and
// its current sessions. Either party of the assignment may read it.
func (s *assignmentService) GetAssignmentWithSessions(ctx context.Context, actorID, assignmentID primitive.ObjectID) (*AssignmentDetail, error) {
	a, err := s.participantAssignment(ctx, assignmentID, actorID)
	if err != nil {
		return nil, err
	}

	current, err := s.Materializer.Current(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	summary, err := s.summary(ctx, a)
	if err != nil {
		return nil, err
	}
	summary.DaysPerWeek = len(current)

	return &AssignmentDetail{Assignment: *a, Programme: summary, Sessions: current}, nil
}

func (s *assignmentService) summary(ctx context.Context, a *domain.Assignment) (ProgrammeSummary, error) {
	summary := ProgrammeSummary{BlueprintID: a.BlueprintID, VersionID: a.CurrentVersionID}

	blueprint, err := s.Blueprints.GetByID(ctx, a.BlueprintID)
	switch {
	case err == nil:
		summary.Name = blueprint.Name
		summary.Description = blueprint.Description
		if blueprint.GoalID != nil && s.Goals != nil {
			goal, err := s.Goals.GoalName(ctx, *blueprint.GoalID)
			if err != nil {
				// Display enrichment only.
				s.Log.Warn("Goal lookup failed", "goalId", blueprint.GoalID.Hex(), "error", err)
			}
			summary.Goal = goal
		}
	case !errors.Is(err, repository.ErrNotFound):
		return summary, err
	}

	version, err := s.Versions.GetByID(ctx, a.CurrentVersionID)
	switch {
	case err == nil:
		summary.VersionNumber = version.VersionNumber
	case !errors.Is(err, repository.ErrNotFound):
		// Sessions are denormalized, so a deleted version only loses the number.
		return summary, err
	}
	return summary, nil
}

// GetClientAssignments lists pending and active assignments, after running the
// client's share of the sweeps when enabled.
func (s *assignmentService) GetClientAssignments(ctx context.Context, clientID primitive.ObjectID) (*ClientAssignments, error) {
	if clientID == primitive.NilObjectID {
		return nil, Validation("client ID is required")
	}

	if s.SweepOnRead && s.Sweeper != nil {
		at := now()
		if _, err := s.Sweeper.CleanupOldRejected(ctx, at, &clientID); err != nil {
			s.Log.Warn("On-read rejected cleanup failed", "clientId", clientID.Hex(), "error", err)
		}
		if _, err := s.Sweeper.ExpireStalePendingUpdates(ctx, at, &clientID); err != nil {
			s.Log.Warn("On-read pending expiry failed", "clientId", clientID.Hex(), "error", err)
		}
	}

	rows, err := s.Assignments.GetByClientID(ctx, clientID, domain.StatusPendingAcceptance, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	out := &ClientAssignments{Pending: []domain.Assignment{}, Active: []domain.Assignment{}}
	for _, a := range rows {
		if a.Status == domain.StatusPendingAcceptance {
			out.Pending = append(out.Pending, a)
		} else {
			out.Active = append(out.Active, a)
		}
	}
	return out, nil
}

func (s *assignmentService) ListForProfessional(ctx context.Context, proID primitive.ObjectID) ([]domain.Assignment, error) {
	if proID == primitive.NilObjectID {
		return nil, Validation("professional ID is required")
	}
	return s.Assignments.GetByProID(ctx, proID)
}

func (s *assignmentService) EventsForAssignment(ctx context.Context, actorID, assignmentID primitive.ObjectID) ([]domain.AssignmentEvent, error) {
	if _, err := s.participantAssignment(ctx, assignmentID, actorID); err != nil {
		return nil, err
	}
	return s.Events.GetByAssignmentID(ctx, assignmentID)
}

func (s *assignmentService) EventsForClient(ctx context.Context, clientID primitive.ObjectID, since *time.Time) ([]domain.AssignmentEvent, error) {
	if clientID == primitive.NilObjectID {
		return nil, Validation("client ID is required")
	}
	return s.Events.GetByClientID(ctx, clientID, since)
}

// --- Helpers ---

func (s *assignmentService) load(ctx context.Context, assignmentID primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, mapRepoErr(err, ErrAssignmentNotFound)
	}
	return a, nil
}

func (s *assignmentService) clientAssignment(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.ClientID != clientID {
		return nil, ErrNotAssignmentClient
	}
	return a, nil
}

func (s *assignmentService) participantAssignment(ctx context.Context, assignmentID, actorID primitive.ObjectID) (*domain.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.ClientID != actorID && a.AssignedByProID != actorID {
		return nil, ErrAssignmentAccessDenied
	}
	return a, nil
}
