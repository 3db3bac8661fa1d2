package memory

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func activeWithOverlay(t *testing.T, s *Store) (*domain.Assignment, repository.OverlayExpectation) {
	t.Helper()
	ctx := context.Background()
	a := &domain.Assignment{
		ClientID:         primitive.NewObjectID(),
		AssignedByProID:  primitive.NewObjectID(),
		CurrentVersionID: primitive.NewObjectID(),
		Status:           domain.StatusActive,
	}
	_, err := s.Assignments().Create(ctx, a)
	require.NoError(t, err)

	pu := domain.PendingUpdate{VersionID: primitive.NewObjectID(), CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, s.Assignments().SetPendingUpdate(ctx, a.ID, pu, pu.CreatedAt))
	return a, repository.OverlayExpectation{
		CurrentVersionID: a.CurrentVersionID,
		PendingVersionID: pu.VersionID,
		PendingCreatedAt: pu.CreatedAt,
	}
}

func TestAssignments_OverlayConditionalWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, expect := activeWithOverlay(t, s)

	stale := expect
	stale.PendingVersionID = primitive.NewObjectID()
	assert.ErrorIs(t, s.Assignments().ApplyPendingUpdate(ctx, a.ID, stale, time.Now()), repository.ErrConflict)

	require.NoError(t, s.Assignments().ApplyPendingUpdate(ctx, a.ID, expect, time.Now()))
	got, err := s.Assignments().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, expect.PendingVersionID, got.CurrentVersionID)
	assert.Nil(t, got.PendingUpdate)

	// second writer read the same overlay
	assert.ErrorIs(t, s.Assignments().ClearPendingUpdate(ctx, a.ID, expect, time.Now()), repository.ErrConflict)
	assert.ErrorIs(t, s.Assignments().ClearPendingUpdate(ctx, primitive.NewObjectID(), expect, time.Now()), repository.ErrNotFound)
}

func TestAssignments_TransitionStatusChecksFrom(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, _ := activeWithOverlay(t, s)

	err := s.Assignments().TransitionStatus(ctx, a.ID, domain.StatusPendingAcceptance, domain.StatusActive, repository.StatusChange{At: time.Now()})
	assert.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, s.Assignments().TransitionStatus(ctx, a.ID, domain.StatusActive, domain.StatusPaused,
		repository.StatusChange{At: time.Now(), ClearPending: true}))
	got, err := s.Assignments().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, got.Status)
	assert.False(t, got.HasPendingUpdate())

	assert.ErrorIs(t, s.Assignments().SetPendingUpdate(ctx, a.ID, domain.PendingUpdate{}, time.Now()), repository.ErrConflict)
}

func TestDeleteRejected_OnlyPastCutoff(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rejectedAt := time.Now().UTC()
	a := &domain.Assignment{Status: domain.StatusRejected, RejectedAt: &rejectedAt}
	_, err := s.Assignments().Create(ctx, a)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Assignments().DeleteRejected(ctx, a.ID, rejectedAt), repository.ErrConflict)
	require.NoError(t, s.Assignments().DeleteRejected(ctx, a.ID, rejectedAt.Add(time.Second)))
	assert.ErrorIs(t, s.Assignments().DeleteRejected(ctx, a.ID, rejectedAt.Add(time.Second)), repository.ErrNotFound)
}

func TestWithinTransaction_RollsBackAndJoins(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.Blueprints().Create(ctx, &domain.Blueprint{Name: "inner"})
		require.NoError(t, err)
		// nested call joins and sees the uncommitted write
		return s.WithinTransaction(ctx, func(ctx context.Context) error {
			list, err := s.Blueprints().GetByOwnerID(ctx, primitive.NilObjectID, true)
			require.NoError(t, err)
			assert.Len(t, list, 1)
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	owned, err := s.Blueprints().GetByOwnerID(ctx, primitive.NilObjectID, true)
	require.NoError(t, err)
	assert.Empty(t, owned, "rolled back write must not be visible")
}

func TestVersions_SingleActiveAndUniqueNumber(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	bp := primitive.NewObjectID()

	v1 := &domain.Version{BlueprintID: bp, VersionNumber: 1, Status: domain.VersionActive}
	_, err := s.Versions().Create(ctx, v1)
	require.NoError(t, err)

	_, err = s.Versions().Create(ctx, &domain.Version{BlueprintID: bp, VersionNumber: 1, Status: domain.VersionDraft})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	v2 := &domain.Version{BlueprintID: bp, VersionNumber: 2, Status: domain.VersionDraft}
	_, err = s.Versions().Create(ctx, v2)
	require.NoError(t, err)

	err = s.Versions().UpdateStatus(ctx, v2.ID, []domain.VersionStatus{domain.VersionDraft}, domain.VersionActive, nil)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	n, err := s.Versions().ArchiveActive(ctx, bp, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, s.Versions().UpdateStatus(ctx, v2.ID, []domain.VersionStatus{domain.VersionDraft}, domain.VersionActive, nil))

	max, err := s.Versions().MaxVersionNumber(ctx, bp)
	require.NoError(t, err)
	assert.Equal(t, 2, max)
}

func TestFailNext_FiresOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.FailNext("events.Append", assert.AnError)

	assert.ErrorIs(t, s.Events().Append(ctx, &domain.AssignmentEvent{}), assert.AnError)
	assert.NoError(t, s.Events().Append(ctx, &domain.AssignmentEvent{}))
}
