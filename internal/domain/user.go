package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role distinguishes the two kinds of platform users this service cares about.
type Role string

const (
	RoleProfessional Role = "professional"
	RoleClient       Role = "client"
)

// User is the read-only projection of a host platform user.
// Accounts are created and authenticated elsewhere; this service only reads
// the professional/client link from it.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Professional-specific ---
	ClientIDs []primitive.ObjectID `bson:"clientIds,omitempty" json:"clientIds,omitempty"`

	// --- Client-specific ---
	// ProfessionalID is set while the client has an active coaching relationship.
	ProfessionalID *primitive.ObjectID `bson:"professionalId,omitempty" json:"professionalId,omitempty"`
}

func (u *User) IsProfessional() bool {
	return u.Role == RoleProfessional
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// CoachedBy reports whether the user is a client with an active relationship to proID.
func (u *User) CoachedBy(proID primitive.ObjectID) bool {
	return u.IsClient() && u.ProfessionalID != nil && *u.ProfessionalID == proID
}
