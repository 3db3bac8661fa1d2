// internal/domain/version.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VersionStatus is the promotion lifecycle of a blueprint version.
type VersionStatus string

const (
	VersionDraft         VersionStatus = "draft"
	VersionPendingReview VersionStatus = "pending_review"
	VersionActive        VersionStatus = "active"
	VersionArchived      VersionStatus = "archived"
)

// Version is one numbered snapshot of a blueprint's exercise content.
// At most one version per blueprint is active at a time.
type Version struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BlueprintID   primitive.ObjectID `bson:"blueprintId" json:"blueprintId"`
	VersionNumber int                `bson:"versionNumber" json:"versionNumber"` // max+1 per blueprint
	Status        VersionStatus      `bson:"status" json:"status"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"` // change notes from the author
	CreatedBy     primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	PublishedAt   *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"` // set only on activation
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (v *Version) IsActive() bool {
	return v.Status == VersionActive
}

// Editable reports whether the version's exercise content may still change.
func (v *Version) Editable() bool {
	return v.Status != VersionArchived
}
