package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus type for assignment lifecycle
type AssignmentStatus string

const (
	StatusPendingAcceptance AssignmentStatus = "pending_acceptance" // Offered, client has not answered yet
	StatusActive            AssignmentStatus = "active"
	StatusPaused            AssignmentStatus = "paused"
	StatusCompleted         AssignmentStatus = "completed"
	StatusCancelled         AssignmentStatus = "cancelled"
	StatusRejected          AssignmentStatus = "rejected" // Purged after the retention window
)

// assignmentTransitions lists the allowed primary status moves.
// pending_acceptance is left only through Accept/Reject.
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	StatusPendingAcceptance: {StatusActive, StatusRejected},
	StatusActive:            {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused:            {StatusActive, StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to AssignmentStatus) bool {
	for _, s := range assignmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status change is possible.
func (s AssignmentStatus) IsTerminal() bool {
	return len(assignmentTransitions[s]) == 0
}

// PendingUpdate is a version offered to a client on top of an active assignment.
// A nil *PendingUpdate on the assignment means there is no pending update.
type PendingUpdate struct {
	VersionID primitive.ObjectID `bson:"versionId" json:"versionId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	PushedBy  primitive.ObjectID `bson:"pushedBy" json:"pushedBy"`
}

// Assignment links a client to one version of a blueprint.
type Assignment struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID         primitive.ObjectID `bson:"clientId" json:"clientId"`
	AssignedByProID  primitive.ObjectID `bson:"assignedByProId" json:"assignedByProId"`
	BlueprintID      primitive.ObjectID `bson:"blueprintId" json:"blueprintId"` // denormalized from the version
	CurrentVersionID primitive.ObjectID `bson:"currentVersionId" json:"currentVersionId"`
	Status           AssignmentStatus   `bson:"status" json:"status"`
	StartDate        *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate          *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"` // pro notes, or the client's reject reason
	PendingUpdate    *PendingUpdate     `bson:"pendingUpdate,omitempty" json:"pendingUpdate,omitempty"`
	AcceptedAt       *time.Time         `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	RejectedAt       *time.Time         `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	StatusChangedAt  time.Time          `bson:"statusChangedAt" json:"statusChangedAt"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasPendingUpdate reports whether an update offer is waiting for the client.
func (a *Assignment) HasPendingUpdate() bool {
	return a.PendingUpdate != nil
}

// AssignmentDates carries the optional schedule given when offering a programme.
type AssignmentDates struct {
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}
