package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blueprint "5-Day Split", v1 with 3 exercises on day 1, accepted by the client.
func TestAccept_MaterializesInitialSessions(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("5-Day Split")
	v1 := f.active(b.ID, dayOne(3))

	a := f.offer(v1.ID)
	assert.Equal(t, domain.StatusPendingAcceptance, a.Status)
	assert.Empty(t, f.current(a.ID))

	a, err := f.assignments.Accept(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, a.Status)
	assert.NotNil(t, a.AcceptedAt)

	sessions := f.current(a.ID)
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].DayNumber)
	assert.True(t, sessions[0].IsCurrent)
	assert.Len(t, sessions[0].Exercises, 3)
	assert.Equal(t, v1.ID, sessions[0].VersionID)

	assert.Len(t, f.events(a.ID, domain.EventCreated), 1)
	assert.Len(t, f.events(a.ID, domain.EventAccepted), 1)
}

func TestAccept_Twice(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Twice").ID, dayOne(1))
	a := f.accepted(v.ID)

	_, err := f.assignments.Accept(f.ctx, a.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotPending)
	assert.Equal(t, KindInvalidTransition, KindOf(err))
	assert.Equal(t, "assignment is not pending acceptance", err.Error())
	assert.Len(t, f.current(a.ID), 1)
}

func TestAccept_WrongClient(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Mine").ID, dayOne(1))
	a := f.offer(v.ID)

	_, err := f.assignments.Accept(f.ctx, a.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.assignments.Accept(f.ctx, primitive.NewObjectID(), f.client.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAccept_RollsBackWhenMaterializationFails(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Atomic").ID, dayOne(2))
	a := f.offer(v.ID)

	f.store.FailNext("sessions.CreateMany", assert.AnError)
	_, err := f.assignments.Accept(f.ctx, a.ID, f.client.ID)
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, domain.StatusPendingAcceptance, f.reload(a.ID).Status)
	assert.Empty(t, f.current(a.ID))
	assert.Empty(t, f.events(a.ID, domain.EventAccepted))

	// and the client can still accept afterwards
	_, err = f.assignments.Accept(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)
	assert.Len(t, f.current(a.ID), 1)
}

func TestAccept_EventFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Audit").ID, dayOne(1))
	a := f.offer(v.ID)

	f.store.FailNext("events.Append", errors.New("event store down"))
	a, err := f.assignments.Accept(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, a.Status)
	assert.Empty(t, f.events(a.ID, domain.EventAccepted))
}

func TestCreate_Guards(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Guards")
	draft := f.draft(b.ID, dayOne(1))

	_, err := f.assignments.Create(f.ctx, f.pro.ID, f.client.ID, draft.ID, domain.AssignmentDates{}, "")
	assert.ErrorIs(t, err, ErrVersionNotActive)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	active := f.active(b.ID, dayOne(1))
	_, err = f.assignments.Create(f.ctx, f.otherPro.ID, f.client.ID, active.ID, domain.AssignmentDates{}, "")
	assert.ErrorIs(t, err, ErrNoActiveRelationship)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.assignments.Create(f.ctx, f.pro.ID, primitive.NewObjectID(), active.ID, domain.AssignmentDates{}, "")
	assert.ErrorIs(t, err, ErrClientNotFound)

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err = f.assignments.Create(f.ctx, f.pro.ID, f.client.ID, active.ID, domain.AssignmentDates{StartDate: &start, EndDate: &end}, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReject_StampsReason(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("No thanks").ID, dayOne(1))
	a := f.offer(v.ID)

	a, err := f.assignments.Reject(f.ctx, a.ID, f.client.ID, "too much volume")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, a.Status)
	assert.Equal(t, "too much volume", a.Notes)
	require.NotNil(t, a.RejectedAt)

	_, err = f.assignments.Accept(f.ctx, a.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotPending)
	assert.Len(t, f.events(a.ID, domain.EventRejected), 1)
}

// Rejected, then cleaned up eight days later.
func TestCleanupOldRejected_PurgesAfterRetention(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Purge").ID, dayOne(1))
	a := f.offer(v.ID)
	_, err := f.assignments.Reject(f.ctx, a.ID, f.client.ID, "")
	require.NoError(t, err)

	report, err := f.sweeper.CleanupOldRejected(f.ctx, now().Add(6*24*time.Hour), &f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Purged)
	assert.Equal(t, domain.StatusRejected, f.reload(a.ID).Status)

	report, err = f.sweeper.CleanupOldRejected(f.ctx, now().Add(8*24*time.Hour), &f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)

	_, err = f.assignments.GetAssignmentWithSessions(f.ctx, f.client.ID, a.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	// archived with its events before deletion
	keys := f.archive.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasSuffix(keys[0], a.ID.Hex()+".json"))
	body, err := f.archive.GetObject(f.ctx, keys[0])
	require.NoError(t, err)
	var doc archivedAssignment
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, a.ID, doc.Assignment.ID)
	assert.Len(t, doc.Events, 2)
}

func TestCleanupOldRejected_LeavesOtherStatusesAndClients(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Scoped").ID, dayOne(1))
	active := f.accepted(v.ID)
	pending := f.offer(v.ID)

	report, err := f.sweeper.CleanupOldRejected(f.ctx, now().Add(30*24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, domain.StatusActive, f.reload(active.ID).Status)
	assert.Equal(t, domain.StatusPendingAcceptance, f.reload(pending.ID).Status)
}

type failingArchive struct{}

func (failingArchive) PutObject(context.Context, string, []byte, string) error {
	return errors.New("bucket unavailable")
}

func TestCleanupOldRejected_ArchiveFailureStillPurges(t *testing.T) {
	f := newFixture(t)
	sweeper := NewSweeper(f.store.Assignments(), f.store.Events(), NewEventRecorder(f.store.Events(), logger.NewNop()), failingArchive{}, SweeperConfig{}, logger.NewNop())
	v := f.active(f.blueprint("Best effort").ID, dayOne(1))
	a := f.offer(v.ID)
	_, err := f.assignments.Reject(f.ctx, a.ID, f.client.ID, "")
	require.NoError(t, err)

	report, err := sweeper.CleanupOldRejected(f.ctx, now().Add(8*24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)
	assert.Equal(t, 1, report.ArchiveFailure)
}

func TestGetClientAssignments_SplitsAndSweepsOnRead(t *testing.T) {
	f := newFixture(t, withSweepOnRead(), withSweepConfig(SweeperConfig{RejectedRetention: time.Millisecond}))
	v := f.active(f.blueprint("Lists").ID, dayOne(1))

	active := f.accepted(v.ID)
	pending := f.offer(v.ID)
	rejected := f.offer(v.ID)
	_, err := f.assignments.Reject(f.ctx, rejected.ID, f.client.ID, "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	got, err := f.assignments.GetClientAssignments(f.ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, got.Active, 1)
	require.Len(t, got.Pending, 1)
	assert.Equal(t, active.ID, got.Active[0].ID)
	assert.Equal(t, pending.ID, got.Pending[0].ID)

	_, err = f.store.Assignments().GetByID(f.ctx, rejected.ID)
	assert.Error(t, err, "rejected row past retention is purged by the read")
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Status")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)
	v2 := f.active(b.ID, dayOne(2))

	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)

	// pausing withdraws the pending update
	paused, err := f.assignments.ChangeStatus(f.ctx, a.ID, f.client.ID, domain.StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, paused.Status)
	assert.False(t, paused.HasPendingUpdate())
	assert.Equal(t, v1.ID, paused.CurrentVersionID)

	resumed, err := f.assignments.ChangeStatus(f.ctx, a.ID, f.pro.ID, domain.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, resumed.Status)
	assert.Len(t, f.current(a.ID), 1, "sessions are kept across pause and resume")

	done, err := f.assignments.ChangeStatus(f.ctx, a.ID, f.client.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)

	_, err = f.assignments.ChangeStatus(f.ctx, a.ID, f.client.ID, domain.StatusActive)
	assert.ErrorIs(t, err, ErrStatusTransition)

	_, err = f.assignments.ChangeStatus(f.ctx, a.ID, f.otherPro.ID, domain.StatusCancelled)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Len(t, f.events(a.ID, domain.EventStatusChanged), 3)
}

func TestChangeStatus_PendingOnlyThroughAcceptReject(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Pending").ID, dayOne(1))
	a := f.offer(v.ID)

	_, err := f.assignments.ChangeStatus(f.ctx, a.ID, f.client.ID, domain.StatusActive)
	assert.ErrorIs(t, err, ErrStatusTransition)
	_, err = f.assignments.ChangeStatus(f.ctx, a.ID, f.pro.ID, domain.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestGetAssignmentWithSessions(t *testing.T) {
	goalID := primitive.NewObjectID()
	f := newFixture(t, withGoals(StaticGoals{goalID: "Hypertrophy"}))
	b, err := f.programmes.CreateBlueprint(f.ctx, f.pro.ID, BlueprintInput{Name: "Split", Description: "Upper/lower", GoalID: &goalID})
	require.NoError(t, err)
	v := f.active(b.ID, []EntryInput{openEntry("Bench", 1, "chest"), openEntry("Row", 1, "back"), openEntry("Squat", 2, "quads")})
	a := f.accepted(v.ID)

	detail, err := f.assignments.GetAssignmentWithSessions(f.ctx, f.client.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Split", detail.Programme.Name)
	assert.Equal(t, "Hypertrophy", detail.Programme.Goal)
	assert.Equal(t, 1, detail.Programme.VersionNumber)
	assert.Equal(t, 2, detail.Programme.DaysPerWeek)
	require.Len(t, detail.Sessions, 2)
	assert.Equal(t, "Upper Body", detail.Sessions[0].FocusLabel)
	assert.Equal(t, "Legs", detail.Sessions[1].FocusLabel)

	_, err = f.assignments.GetAssignmentWithSessions(f.ctx, f.otherPro.ID, a.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEventFeeds(t *testing.T) {
	f := newFixture(t)
	v := f.active(f.blueprint("Feed").ID, dayOne(1))
	a := f.accepted(v.ID)

	byAssignment, err := f.assignments.EventsForAssignment(f.ctx, f.pro.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, byAssignment, 2)
	assert.Equal(t, domain.EventCreated, byAssignment[0].EventType)
	assert.Equal(t, domain.EventAccepted, byAssignment[1].EventType)

	byClient, err := f.assignments.EventsForClient(f.ctx, f.client.ID, nil)
	require.NoError(t, err)
	assert.Len(t, byClient, 2)

	future := time.Now().Add(time.Hour)
	none, err := f.assignments.EventsForClient(f.ctx, f.client.ID, &future)
	require.NoError(t, err)
	assert.Empty(t, none)

	mine, err := f.assignments.ListForProfessional(f.ctx, f.pro.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
