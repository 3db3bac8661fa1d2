package memory

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepo struct{ s *Store }

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(ctx, func(st *memoryState) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneUser(u)
		out = &c
		return nil
	})
	return out, err
}

type exerciseRepo struct{ s *Store }

func (r *exerciseRepo) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	err := r.s.write(ctx, "exercises.Create", func(st *memoryState) error {
		exercise.ID = primitive.NewObjectID()
		now := r.s.now()
		exercise.CreatedAt = now
		exercise.UpdatedAt = now
		st.exercises[exercise.ID] = *exercise
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return exercise.ID, nil
}

func (r *exerciseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	var out *domain.Exercise
	err := r.s.read(ctx, func(st *memoryState) error {
		ex, ok := st.exercises[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &ex
		return nil
	})
	return out, err
}

func (r *exerciseRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	out := []domain.Exercise{}
	err := r.s.read(ctx, func(st *memoryState) error {
		for _, id := range ids {
			if ex, ok := st.exercises[id]; ok {
				out = append(out, ex)
			}
		}
		return nil
	})
	return out, err
}
