// internal/domain/session.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionExercise is the denormalized copy of an entry inside a materialized session.
type SessionExercise struct {
	EntryID      primitive.ObjectID  `bson:"entryId" json:"entryId"`
	ExerciseID   *primitive.ObjectID `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	Name         string              `bson:"name" json:"name"`
	OrderInDay   int                 `bson:"orderInDay" json:"orderInDay"`
	MuscleGroups []string            `bson:"muscleGroups,omitempty" json:"muscleGroups,omitempty"`
	Notes        string              `bson:"notes,omitempty" json:"notes,omitempty"`

	Prescription `bson:",inline"`
}

// MaterializedSession is the persisted snapshot of one training day for one
// assignment and version. Exactly one set per assignment is current.
type MaterializedSession struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssignmentID   primitive.ObjectID `bson:"assignmentId" json:"assignmentId"`
	VersionID      primitive.ObjectID `bson:"versionId" json:"versionId"`
	SessionKey     string             `bson:"sessionKey" json:"sessionKey"`
	DayNumber      int                `bson:"dayNumber" json:"dayNumber"`
	Name           string             `bson:"name" json:"name"`
	FocusLabel     string             `bson:"focusLabel" json:"focusLabel"`
	Exercises      []SessionExercise  `bson:"exercises" json:"exercises"`
	IsCurrent      bool               `bson:"isCurrent" json:"isCurrent"`
	MaterializedAt time.Time          `bson:"materializedAt" json:"materializedAt"`
	SupersededAt   *time.Time         `bson:"supersededAt,omitempty" json:"supersededAt,omitempty"`
}
