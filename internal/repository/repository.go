package repository

import (
	"alcyxob/coaching-programmes/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrConflict  = RepositoryError("conditional update did not match current state")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn as one atomic unit. Repository calls made with the ctx
// handed to fn take part in the transaction; an error from fn rolls it back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository reads host platform users (relationship checks only).
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ExerciseRepository reads the shared exercise library.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error)
}

// BlueprintRepository defines the interface for interacting with blueprint data.
type BlueprintRepository interface {
	Create(ctx context.Context, blueprint *domain.Blueprint) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Blueprint, error)
	GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID, includeArchived bool) ([]domain.Blueprint, error)
	GetTemplates(ctx context.Context) ([]domain.Blueprint, error)
	SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) error
}

// VersionRepository defines the interface for interacting with blueprint versions.
type VersionRepository interface {
	// Create returns ErrDuplicate when the (blueprint, version number) pair is taken.
	Create(ctx context.Context, version *domain.Version) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Version, error)
	GetByBlueprintID(ctx context.Context, blueprintID primitive.ObjectID) ([]domain.Version, error) // ordered by version number
	MaxVersionNumber(ctx context.Context, blueprintID primitive.ObjectID) (int, error)              // 0 when there are none
	// UpdateStatus moves the version to `to` only if its status is one of `from`.
	// ErrConflict when the status no longer matches.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from []domain.VersionStatus, to domain.VersionStatus, publishedAt *time.Time) error
	// ArchiveActive archives every active version of the blueprint except exceptID.
	ArchiveActive(ctx context.Context, blueprintID, exceptID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ExerciseEntryRepository stores the exercise entries owned by a version.
// Entries are rewritten per version rather than patched in place.
type ExerciseEntryRepository interface {
	CreateMany(ctx context.Context, entries []domain.ExerciseEntry) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseEntry, error)
	GetByVersionID(ctx context.Context, versionID primitive.ObjectID) ([]domain.ExerciseEntry, error) // ordered by day, then order in day
	DeleteByVersionID(ctx context.Context, versionID primitive.ObjectID) (int64, error)
}

// StatusChange carries the fields stamped alongside a status transition.
type StatusChange struct {
	At           time.Time
	AcceptedAt   *time.Time
	RejectedAt   *time.Time
	Notes        *string // nil leaves notes untouched
	ClearPending bool
}

// OverlayExpectation is the overlay state a conditional update was computed from.
type OverlayExpectation struct {
	CurrentVersionID primitive.ObjectID
	PendingVersionID primitive.ObjectID
	PendingCreatedAt time.Time
}

// AssignmentRepository defines the interface for interacting with assignment data.
// Every mutation is a single conditional update; ErrConflict means the row
// was changed by someone else since it was read.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID, statuses ...domain.AssignmentStatus) ([]domain.Assignment, error)
	GetByProID(ctx context.Context, proID primitive.ObjectID) ([]domain.Assignment, error)

	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.AssignmentStatus, change StatusChange) error
	// SetPendingUpdate installs (or overwrites) the overlay while the assignment is active.
	SetPendingUpdate(ctx context.Context, id primitive.ObjectID, update domain.PendingUpdate, at time.Time) error
	// ApplyPendingUpdate promotes the pending version to current and clears the overlay.
	ApplyPendingUpdate(ctx context.Context, id primitive.ObjectID, expect OverlayExpectation, at time.Time) error
	// ClearPendingUpdate drops the overlay, leaving the current version untouched.
	ClearPendingUpdate(ctx context.Context, id primitive.ObjectID, expect OverlayExpectation, at time.Time) error

	// FindStalePending returns active assignments whose overlay was created before `before`.
	// A non-nil clientID narrows the scan to one client.
	FindStalePending(ctx context.Context, before time.Time, clientID *primitive.ObjectID) ([]domain.Assignment, error)
	// FindRejectedBefore returns rejected assignments with rejectedAt before `before`.
	FindRejectedBefore(ctx context.Context, before time.Time, clientID *primitive.ObjectID) ([]domain.Assignment, error)
	// DeleteRejected hard-deletes the row only if it is still rejected before `before`.
	DeleteRejected(ctx context.Context, id primitive.ObjectID, before time.Time) error
}

// SessionRepository stores materialized sessions.
type SessionRepository interface {
	CreateMany(ctx context.Context, sessions []domain.MaterializedSession) error
	GetCurrentByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error) // ordered by day
	GetByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error)        // full history, newest first
	// SupersedeCurrent flips every current session of the assignment to non-current.
	SupersedeCurrent(ctx context.Context, assignmentID primitive.ObjectID, at time.Time) (int64, error)
}

// EventRepository is the append-only assignment event feed.
type EventRepository interface {
	Append(ctx context.Context, event *domain.AssignmentEvent) error
	GetByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.AssignmentEvent, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID, since *time.Time) ([]domain.AssignmentEvent, error)
}
