// internal/domain/event.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType names an assignment lifecycle transition.
type EventType string

const (
	EventCreated        EventType = "created"
	EventAccepted       EventType = "accepted"
	EventRejected       EventType = "rejected"
	EventStatusChanged  EventType = "status_changed"
	EventUpdatePushed   EventType = "update_pushed"
	EventUpdateAccepted EventType = "update_accepted"
	EventUpdateDeclined EventType = "update_declined"
	EventUpdateExpired  EventType = "update_expired"
)

// AssignmentEvent is an append-only audit record. Writing one never decides
// whether the transition it describes succeeded.
type AssignmentEvent struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AssignmentID   primitive.ObjectID  `bson:"assignmentId" json:"assignmentId"`
	ClientID       primitive.ObjectID  `bson:"clientId" json:"clientId"`
	ProfessionalID primitive.ObjectID  `bson:"professionalId" json:"professionalId"`
	EventType      EventType           `bson:"eventType" json:"eventType"`
	PerformedBy    *primitive.ObjectID `bson:"performedBy,omitempty" json:"performedBy,omitempty"` // nil for the sweep
	OldStatus      AssignmentStatus    `bson:"oldStatus,omitempty" json:"oldStatus,omitempty"`
	NewStatus      AssignmentStatus    `bson:"newStatus,omitempty" json:"newStatus,omitempty"`
	FromVersionID  *primitive.ObjectID `bson:"fromVersionId,omitempty" json:"fromVersionId,omitempty"`
	ToVersionID    *primitive.ObjectID `bson:"toVersionId,omitempty" json:"toVersionId,omitempty"`
	Notes          string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
}
