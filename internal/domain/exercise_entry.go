// internal/domain/exercise_entry.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxTrainingDays is the number of distinct training days a version may have.
const MaxTrainingDays = 7

// LoadDirective describes how the client should pick the working load.
type LoadDirective string

const (
	LoadOpen       LoadDirective = "open"       // client chooses
	LoadAbsolute   LoadDirective = "absolute"   // fixed target weight
	LoadBodyweight LoadDirective = "bodyweight" // no external load
	LoadAssisted   LoadDirective = "assisted"   // machine/band assistance, target is the assistance
)

func (d LoadDirective) Valid() bool {
	switch d {
	case LoadOpen, LoadAbsolute, LoadBodyweight, LoadAssisted:
		return true
	}
	return false
}

// Prescription holds the set/rep/rest/load fields of an entry.
// It is copied verbatim into materialized sessions.
type Prescription struct {
	Sets          int           `bson:"sets" json:"sets"`
	Reps          string        `bson:"reps" json:"reps"` // e.g., "8-12", "5", "AMRAP"
	RestSeconds   int           `bson:"restSeconds" json:"restSeconds"`
	Tempo         string        `bson:"tempo,omitempty" json:"tempo,omitempty"`
	LoadDirective LoadDirective `bson:"loadDirective" json:"loadDirective"`
	TargetWeight  *float64      `bson:"targetWeight,omitempty" json:"targetWeight,omitempty"`
}

// ExerciseEntry is one exercise slot of a version on a given training day.
type ExerciseEntry struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	VersionID    primitive.ObjectID  `bson:"versionId" json:"versionId"`
	DayNumber    int                 `bson:"dayNumber" json:"dayNumber"`                       // 1..7
	OrderInDay   int                 `bson:"orderInDay" json:"orderInDay"`                     // 1..n, unique within a day
	ExerciseID   *primitive.ObjectID `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"` // shared library reference
	CustomName   string              `bson:"customName,omitempty" json:"customName,omitempty"`
	MuscleGroups []string            `bson:"muscleGroups,omitempty" json:"muscleGroups,omitempty"`
	Notes        string              `bson:"notes,omitempty" json:"notes,omitempty"`

	Prescription `bson:",inline"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
