// internal/domain/blueprint.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OwnerKind tells who a blueprint belongs to.
type OwnerKind string

const (
	OwnerPlatform     OwnerKind = "platform"
	OwnerProfessional OwnerKind = "professional"
	OwnerClientProxy  OwnerKind = "client_proxy" // authored by a pro on behalf of a self-coached client
)

// Blueprint is the versionable identity of a training programme. Its content
// lives in Versions; the blueprint itself only carries metadata.
type Blueprint struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID  `bson:"ownerId" json:"ownerId"`
	OwnerKind   OwnerKind           `bson:"ownerKind" json:"ownerKind"`
	Name        string              `bson:"name" json:"name"` // e.g., "5-Day Split"
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	GoalID      *primitive.ObjectID `bson:"goalId,omitempty" json:"goalId,omitempty"`
	IsTemplate  bool                `bson:"isTemplate" json:"isTemplate"`
	IsArchived  bool                `bson:"isArchived" json:"isArchived"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}
