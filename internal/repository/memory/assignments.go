package memory

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assignmentRepo struct{ s *Store }

func (r *assignmentRepo) Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	err := r.s.write(ctx, "assignments.Create", func(st *memoryState) error {
		assignment.ID = primitive.NewObjectID()
		now := r.s.now()
		assignment.CreatedAt = now
		assignment.UpdatedAt = now
		if assignment.StatusChangedAt.IsZero() {
			assignment.StatusChangedAt = now
		}
		st.assignments[assignment.ID] = cloneAssignment(*assignment)
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return assignment.ID, nil
}

func (r *assignmentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	var out *domain.Assignment
	err := r.s.read(ctx, func(st *memoryState) error {
		a, ok := st.assignments[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneAssignment(a)
		out = &c
		return nil
	})
	return out, err
}

func (r *assignmentRepo) GetByClientID(ctx context.Context, clientID primitive.ObjectID, statuses ...domain.AssignmentStatus) ([]domain.Assignment, error) {
	return r.filter(ctx, func(a domain.Assignment) bool {
		if a.ClientID != clientID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	})
}

func (r *assignmentRepo) GetByProID(ctx context.Context, proID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(ctx, func(a domain.Assignment) bool { return a.AssignedByProID == proID })
}

func (r *assignmentRepo) filter(ctx context.Context, keep func(domain.Assignment) bool) ([]domain.Assignment, error) {
	out := []domain.Assignment{}
	err := r.s.read(ctx, func(st *memoryState) error {
		for _, a := range st.assignments {
			if keep(a) {
				out = append(out, cloneAssignment(a))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

// update applies mutate to the assignment if match accepts it.
func (r *assignmentRepo) update(ctx context.Context, op string, id primitive.ObjectID, match func(domain.Assignment) bool, mutate func(*domain.Assignment)) error {
	return r.s.write(ctx, op, func(st *memoryState) error {
		a, ok := st.assignments[id]
		if !ok {
			return repository.ErrNotFound
		}
		if !match(a) {
			return repository.ErrConflict
		}
		mutate(&a)
		st.assignments[id] = a
		return nil
	})
}

func (r *assignmentRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.AssignmentStatus, change repository.StatusChange) error {
	return r.update(ctx, "assignments.TransitionStatus", id,
		func(a domain.Assignment) bool { return a.Status == from },
		func(a *domain.Assignment) {
			a.Status = to
			a.StatusChangedAt = change.At
			a.UpdatedAt = change.At
			if change.AcceptedAt != nil {
				a.AcceptedAt = cloneTime(change.AcceptedAt)
			}
			if change.RejectedAt != nil {
				a.RejectedAt = cloneTime(change.RejectedAt)
			}
			if change.Notes != nil {
				a.Notes = *change.Notes
			}
			if change.ClearPending {
				a.PendingUpdate = nil
			}
		})
}

func (r *assignmentRepo) SetPendingUpdate(ctx context.Context, id primitive.ObjectID, update domain.PendingUpdate, at time.Time) error {
	return r.update(ctx, "assignments.SetPendingUpdate", id,
		func(a domain.Assignment) bool { return a.Status == domain.StatusActive },
		func(a *domain.Assignment) {
			pu := update
			a.PendingUpdate = &pu
			a.UpdatedAt = at
		})
}

func overlayMatches(a domain.Assignment, expect repository.OverlayExpectation) bool {
	return a.Status == domain.StatusActive &&
		a.PendingUpdate != nil &&
		a.CurrentVersionID == expect.CurrentVersionID &&
		a.PendingUpdate.VersionID == expect.PendingVersionID &&
		a.PendingUpdate.CreatedAt.Equal(expect.PendingCreatedAt)
}

func (r *assignmentRepo) ApplyPendingUpdate(ctx context.Context, id primitive.ObjectID, expect repository.OverlayExpectation, at time.Time) error {
	return r.update(ctx, "assignments.ApplyPendingUpdate", id,
		func(a domain.Assignment) bool { return overlayMatches(a, expect) },
		func(a *domain.Assignment) {
			a.CurrentVersionID = expect.PendingVersionID
			a.PendingUpdate = nil
			a.UpdatedAt = at
		})
}

func (r *assignmentRepo) ClearPendingUpdate(ctx context.Context, id primitive.ObjectID, expect repository.OverlayExpectation, at time.Time) error {
	return r.update(ctx, "assignments.ClearPendingUpdate", id,
		func(a domain.Assignment) bool { return overlayMatches(a, expect) },
		func(a *domain.Assignment) {
			a.PendingUpdate = nil
			a.UpdatedAt = at
		})
}

func (r *assignmentRepo) FindStalePending(ctx context.Context, before time.Time, clientID *primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(ctx, func(a domain.Assignment) bool {
		if clientID != nil && a.ClientID != *clientID {
			return false
		}
		return a.Status == domain.StatusActive && a.PendingUpdate != nil && a.PendingUpdate.CreatedAt.Before(before)
	})
}

func (r *assignmentRepo) FindRejectedBefore(ctx context.Context, before time.Time, clientID *primitive.ObjectID) ([]domain.Assignment, error) {
	return r.filter(ctx, func(a domain.Assignment) bool {
		if clientID != nil && a.ClientID != *clientID {
			return false
		}
		return rejectedBefore(a, before)
	})
}

func rejectedBefore(a domain.Assignment, before time.Time) bool {
	return a.Status == domain.StatusRejected && a.RejectedAt != nil && a.RejectedAt.Before(before)
}

func (r *assignmentRepo) DeleteRejected(ctx context.Context, id primitive.ObjectID, before time.Time) error {
	return r.s.write(ctx, "assignments.DeleteRejected", func(st *memoryState) error {
		a, ok := st.assignments[id]
		if !ok {
			return repository.ErrNotFound
		}
		if !rejectedBefore(a, before) {
			return repository.ErrConflict
		}
		delete(st.assignments, id)
		return nil
	})
}
