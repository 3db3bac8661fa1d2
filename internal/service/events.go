package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// now is the single time source of the service layer. Millisecond precision
// matches what Mongo stores, so values read back compare equal in filters.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// EventRecorder appends assignment events. Recording is best-effort: a failed
// append is logged and swallowed, so it must run after the state change commits.
type EventRecorder struct {
	repo repository.EventRepository
	log  *logger.Logger
}

func NewEventRecorder(repo repository.EventRepository, log *logger.Logger) *EventRecorder {
	return &EventRecorder{repo: repo, log: log}
}

func (r *EventRecorder) Record(ctx context.Context, event domain.AssignmentEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now()
	}
	if err := r.repo.Append(ctx, &event); err != nil {
		r.log.Warn("Failed to record assignment event",
			"assignmentId", event.AssignmentID.Hex(),
			"eventType", event.EventType,
			"error", err,
		)
	}
}

// newEvent fills the columns every event of an assignment shares.
func newEvent(a *domain.Assignment, eventType domain.EventType, performedBy *primitive.ObjectID) domain.AssignmentEvent {
	return domain.AssignmentEvent{
		AssignmentID:   a.ID,
		ClientID:       a.ClientID,
		ProfessionalID: a.AssignedByProID,
		EventType:      eventType,
		PerformedBy:    performedBy,
	}
}

func oid(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}
