package memory

import (
	"alcyxob/coaching-programmes/internal/domain"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Materialized sessions ---

type sessionRepo struct{ s *Store }

func (r *sessionRepo) CreateMany(ctx context.Context, sessions []domain.MaterializedSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return r.s.write(ctx, "sessions.CreateMany", func(st *memoryState) error {
		for i := range sessions {
			if sessions[i].ID == primitive.NilObjectID {
				sessions[i].ID = primitive.NewObjectID()
			}
			st.sessions[sessions[i].ID] = cloneSession(sessions[i])
		}
		return nil
	})
}

func (r *sessionRepo) GetCurrentByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error) {
	out := r.collect(ctx, func(s domain.MaterializedSession) bool {
		return s.AssignmentID == assignmentID && s.IsCurrent
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

func (r *sessionRepo) GetByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error) {
	out := r.collect(ctx, func(s domain.MaterializedSession) bool { return s.AssignmentID == assignmentID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MaterializedAt.Equal(out[j].MaterializedAt) {
			return out[i].MaterializedAt.After(out[j].MaterializedAt)
		}
		return out[i].DayNumber < out[j].DayNumber
	})
	return out, nil
}

func (r *sessionRepo) collect(ctx context.Context, keep func(domain.MaterializedSession) bool) []domain.MaterializedSession {
	out := []domain.MaterializedSession{}
	_ = r.s.read(ctx, func(st *memoryState) error {
		for _, s := range st.sessions {
			if keep(s) {
				out = append(out, cloneSession(s))
			}
		}
		return nil
	})
	return out
}

func (r *sessionRepo) SupersedeCurrent(ctx context.Context, assignmentID primitive.ObjectID, at time.Time) (int64, error) {
	var n int64
	err := r.s.write(ctx, "sessions.SupersedeCurrent", func(st *memoryState) error {
		for id, s := range st.sessions {
			if s.AssignmentID != assignmentID || !s.IsCurrent {
				continue
			}
			s.IsCurrent = false
			s.SupersededAt = cloneTime(&at)
			st.sessions[id] = s
			n++
		}
		return nil
	})
	return n, err
}

// --- Assignment events ---

type eventRepo struct{ s *Store }

func (r *eventRepo) Append(ctx context.Context, event *domain.AssignmentEvent) error {
	return r.s.write(ctx, "events.Append", func(st *memoryState) error {
		event.ID = primitive.NewObjectID()
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.s.now()
		}
		st.events = append(st.events, cloneEvent(*event))
		return nil
	})
}

func (r *eventRepo) GetByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.AssignmentEvent, error) {
	return r.collect(ctx, func(e domain.AssignmentEvent) bool { return e.AssignmentID == assignmentID }), nil
}

func (r *eventRepo) GetByClientID(ctx context.Context, clientID primitive.ObjectID, since *time.Time) ([]domain.AssignmentEvent, error) {
	return r.collect(ctx, func(e domain.AssignmentEvent) bool {
		return e.ClientID == clientID && (since == nil || !e.CreatedAt.Before(*since))
	}), nil
}

// collect returns matching events in append order.
func (r *eventRepo) collect(ctx context.Context, keep func(domain.AssignmentEvent) bool) []domain.AssignmentEvent {
	out := []domain.AssignmentEvent{}
	_ = r.s.read(ctx, func(st *memoryState) error {
		for _, e := range st.events {
			if keep(e) {
				out = append(out, cloneEvent(e))
			}
		}
		return nil
	})
	return out
}
