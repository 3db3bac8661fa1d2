package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"alcyxob/coaching-programmes/internal/sessions"
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrExerciseNotFound = newError(KindNotFound, "exercise not found")

// ExerciseCatalog resolves shared library references for derivation.
// Unknown ids are simply absent from the returned catalog.
type ExerciseCatalog interface {
	Lookup(ctx context.Context, ids []primitive.ObjectID) (sessions.Catalog, error)
}

// --- Service Interface ---
type ExerciseService interface {
	ExerciseCatalog

	CreateExercise(ctx context.Context, name, description, muscleGroup, equipment string) (*domain.Exercise, error)
	GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error)
}

// --- Service Implementation ---

// exerciseService serves the shared exercise library that entries may reference.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
	}
}

// CreateExercise adds an exercise to the shared library.
func (s *exerciseService) CreateExercise(ctx context.Context, name, description, muscleGroup, equipment string) (*domain.Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validation("exercise name is required")
	}

	exercise := &domain.Exercise{
		Name:        name,
		Description: description,
		MuscleGroup: strings.TrimSpace(muscleGroup),
		Equipment:   equipment,
	}

	exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		return nil, err
	}
	// Fetch again to get the stored timestamps
	return s.exerciseRepo.GetByID(ctx, exerciseID)
}

// GetExerciseByID retrieves a single library exercise.
func (s *exerciseService) GetExerciseByID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

// Lookup fetches name and muscle group for every id in one query.
func (s *exerciseService) Lookup(ctx context.Context, ids []primitive.ObjectID) (sessions.Catalog, error) {
	catalog := make(sessions.Catalog, len(ids))
	if len(ids) == 0 {
		return catalog, nil
	}
	exercises, err := s.exerciseRepo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	for _, ex := range exercises {
		catalog[ex.ID] = sessions.CatalogExercise{Name: ex.Name, MuscleGroup: ex.MuscleGroup}
	}
	return catalog, nil
}

// libraryIDs collects the catalog references of a set of entries.
func libraryIDs(entries []domain.ExerciseEntry) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for _, e := range entries {
		if e.ExerciseID != nil {
			ids = append(ids, *e.ExerciseID)
		}
	}
	return ids
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
