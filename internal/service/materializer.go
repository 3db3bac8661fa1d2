package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"alcyxob/coaching-programmes/internal/sessions"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionMaterializer persists derived sessions as an assignment's workout plan.
// Callers run Materialize and SupersedeCurrent inside their own transaction.
type SessionMaterializer interface {
	Materialize(ctx context.Context, assignmentID, versionID primitive.ObjectID, at time.Time) ([]domain.MaterializedSession, error)
	SupersedeCurrent(ctx context.Context, assignmentID primitive.ObjectID, at time.Time) (int64, error)
	Current(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error)
	History(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error)
}

type sessionMaterializer struct {
	entryRepo   repository.ExerciseEntryRepository
	sessionRepo repository.SessionRepository
	catalog     ExerciseCatalog
	deriver     sessions.Deriver
}

func NewSessionMaterializer(
	entryRepo repository.ExerciseEntryRepository,
	sessionRepo repository.SessionRepository,
	catalog ExerciseCatalog,
	deriver sessions.Deriver,
) SessionMaterializer {
	return &sessionMaterializer{
		entryRepo:   entryRepo,
		sessionRepo: sessionRepo,
		catalog:     catalog,
		deriver:     deriver,
	}
}

// Materialize snapshots every day of the version as current sessions of the assignment.
func (m *sessionMaterializer) Materialize(ctx context.Context, assignmentID, versionID primitive.ObjectID, at time.Time) ([]domain.MaterializedSession, error) {
	entries, err := m.entryRepo.GetByVersionID(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("loading version entries: %w", err)
	}
	catalog, err := m.catalog.Lookup(ctx, libraryIDs(entries))
	if err != nil {
		return nil, fmt.Errorf("resolving exercise names: %w", err)
	}

	derived := m.deriver.Derive(versionID, entries, catalog)
	docs := make([]domain.MaterializedSession, 0, len(derived))
	for _, d := range derived {
		docs = append(docs, domain.MaterializedSession{
			ID:             primitive.NewObjectID(),
			AssignmentID:   assignmentID,
			VersionID:      versionID,
			SessionKey:     d.SessionKey,
			DayNumber:      d.DayNumber,
			Name:           d.Name,
			FocusLabel:     d.FocusLabel,
			Exercises:      d.Exercises,
			IsCurrent:      true,
			MaterializedAt: at,
		})
	}
	if err := m.sessionRepo.CreateMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("storing sessions: %w", err)
	}
	return docs, nil
}

func (m *sessionMaterializer) SupersedeCurrent(ctx context.Context, assignmentID primitive.ObjectID, at time.Time) (int64, error) {
	return m.sessionRepo.SupersedeCurrent(ctx, assignmentID, at)
}

func (m *sessionMaterializer) Current(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error) {
	return m.sessionRepo.GetCurrentByAssignmentID(ctx, assignmentID)
}

func (m *sessionMaterializer) History(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error) {
	return m.sessionRepo.GetByAssignmentID(ctx, assignmentID)
}
