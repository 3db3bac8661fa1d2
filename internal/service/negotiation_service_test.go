package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sessionIDs(ss []domain.MaterializedSession) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}

// v1 accepted, v2 with an extra exercise pushed and accepted.
func TestAcceptUpdate_SwitchesSessions(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("5-Day Split")
	v1 := f.active(b.ID, dayOne(3))
	a := f.accepted(v1.ID)
	before := f.current(a.ID)

	v2 := f.active(b.ID, dayOne(4))
	a, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "  added cable fly  ")
	require.NoError(t, err)
	require.NotNil(t, a.PendingUpdate)
	assert.Equal(t, v2.ID, a.PendingUpdate.VersionID)
	assert.Equal(t, "added cable fly", a.PendingUpdate.Notes)
	assert.Equal(t, f.pro.ID, a.PendingUpdate.PushedBy)
	assert.Equal(t, v1.ID, a.CurrentVersionID, "pushing does not switch the current version")
	assert.Equal(t, sessionIDs(before), sessionIDs(f.current(a.ID)))

	a, err = f.negotiation.AcceptUpdate(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, a.CurrentVersionID)
	assert.False(t, a.HasPendingUpdate())

	current := f.current(a.ID)
	require.Len(t, current, 1)
	assert.Equal(t, v2.ID, current[0].VersionID)
	assert.Len(t, current[0].Exercises, 4)
	assert.NotEqual(t, before[0].ID, current[0].ID)

	history, err := f.materializer.History(f.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, s := range history {
		if s.ID == before[0].ID {
			assert.False(t, s.IsCurrent)
			assert.NotNil(t, s.SupersededAt)
		}
	}

	pushed := f.events(a.ID, domain.EventUpdatePushed)
	require.Len(t, pushed, 1)
	assert.Equal(t, v1.ID, *pushed[0].FromVersionID)
	assert.Equal(t, v2.ID, *pushed[0].ToVersionID)
	assert.Len(t, f.events(a.ID, domain.EventUpdateAccepted), 1)
}

func TestAcceptUpdate_SessionDaysMatchVersion(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("PPL")
	v1 := f.active(b.ID, dayOne(2))
	a := f.accepted(v1.ID)

	v2 := f.active(b.ID, []EntryInput{
		openEntry("Bench", 1, "chest"),
		openEntry("Row", 2, "back"),
		openEntry("Squat", 4, "quads"),
		openEntry("Lunge", 4, "glutes"),
	})
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)
	_, err = f.negotiation.AcceptUpdate(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)

	var days []int
	var labels []string
	for _, s := range f.current(a.ID) {
		days = append(days, s.DayNumber)
		labels = append(labels, s.FocusLabel)
	}
	assert.Equal(t, []int{1, 2, 4}, days)
	assert.Equal(t, []string{"Push", "Pull", "Legs"}, labels)
}

func TestAcceptUpdate_RollsBackWhenMaterializationFails(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Atomic")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)
	before := f.current(a.ID)
	v2 := f.active(b.ID, dayOne(2))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)

	f.store.FailNext("sessions.CreateMany", assert.AnError)
	_, err = f.negotiation.AcceptUpdate(f.ctx, a.ID, f.client.ID)
	require.ErrorIs(t, err, assert.AnError)

	got := f.reload(a.ID)
	assert.Equal(t, v1.ID, got.CurrentVersionID)
	require.NotNil(t, got.PendingUpdate)
	assert.Equal(t, v2.ID, got.PendingUpdate.VersionID)

	after := f.current(a.ID)
	assert.Equal(t, sessionIDs(before), sessionIDs(after), "old sessions must not be superseded by a failed accept")
	assert.Empty(t, f.events(a.ID, domain.EventUpdateAccepted))
}

// Push then decline: nothing about the workout plan changes.
func TestDeclineUpdate_KeepsCurrentSessions(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Decline")
	v1 := f.active(b.ID, dayOne(3))
	a := f.accepted(v1.ID)
	before := f.current(a.ID)

	v2 := f.active(b.ID, dayOne(5))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)

	a, err = f.negotiation.DeclineUpdate(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)
	assert.False(t, a.HasPendingUpdate())
	assert.Equal(t, v1.ID, a.CurrentVersionID)
	assert.Equal(t, domain.StatusActive, a.Status)
	assert.Equal(t, sessionIDs(before), sessionIDs(f.current(a.ID)))

	declined := f.events(a.ID, domain.EventUpdateDeclined)
	require.Len(t, declined, 1)
	assert.Equal(t, f.client.ID, *declined[0].PerformedBy)

	_, err = f.negotiation.DeclineUpdate(f.ctx, a.ID, f.client.ID)
	assert.ErrorIs(t, err, ErrNoPendingUpdate)
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}

func TestPushUpdate_Guards(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Guards")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)

	otherBlueprint := f.blueprint("Other")
	foreign := f.active(otherBlueprint.ID, dayOne(1))
	draft := f.draft(b.ID, dayOne(2))

	tests := []struct {
		name      string
		actor     primitive.ObjectID
		versionID primitive.ObjectID
		wantErr   error
		wantKind  Kind
	}{
		{"another professional", f.otherPro.ID, draft.ID, ErrNotAssigningPro, KindUnauthorized},
		{"unknown version", f.pro.ID, primitive.NewObjectID(), ErrVersionNotFound, KindNotFound},
		{"version of another blueprint", f.pro.ID, foreign.ID, ErrVersionOtherRoutine, KindValidation},
		{"draft version", f.pro.ID, draft.ID, ErrVersionNotActive, KindInvalidTransition},
		{"current version", f.pro.ID, v1.ID, ErrUpdateIsCurrentVersion, KindInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.negotiation.PushUpdate(f.ctx, a.ID, tt.actor, tt.versionID, "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
	assert.False(t, f.reload(a.ID).HasPendingUpdate())
}

func TestPushUpdate_RequiresActiveAssignment(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Paused")
	v1 := f.active(b.ID, dayOne(1))
	pending := f.offer(v1.ID)
	a := f.accepted(v1.ID)
	v2 := f.active(b.ID, dayOne(2))

	_, err := f.negotiation.PushUpdate(f.ctx, pending.ID, f.pro.ID, v2.ID, "")
	assert.ErrorIs(t, err, ErrAssignmentNotActive)

	_, err = f.assignments.ChangeStatus(f.ctx, a.ID, f.client.ID, domain.StatusPaused)
	require.NoError(t, err)
	_, err = f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	assert.ErrorIs(t, err, ErrAssignmentNotActive)
}

func TestPushUpdate_LastPushWins(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Overwrite")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)

	v2 := f.active(b.ID, dayOne(2))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "first")
	require.NoError(t, err)

	v3 := f.active(b.ID, dayOne(3))
	a, err = f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v3.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, v3.ID, a.PendingUpdate.VersionID)
	assert.Equal(t, "second", a.PendingUpdate.Notes)

	a, err = f.negotiation.AcceptUpdate(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, v3.ID, a.CurrentVersionID)
	assert.Len(t, f.current(a.ID)[0].Exercises, 3)
	assert.Len(t, f.events(a.ID, domain.EventUpdatePushed), 2)
}

func TestNegotiation_OnlyTheClientAnswers(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Answer")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)
	v2 := f.active(b.ID, dayOne(2))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)

	_, err = f.negotiation.AcceptUpdate(f.ctx, a.ID, f.pro.ID)
	assert.ErrorIs(t, err, ErrNotAssignmentClient)
	_, err = f.negotiation.DeclineUpdate(f.ctx, a.ID, f.otherPro.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, f.reload(a.ID).HasPendingUpdate())
}

// Pushed, never answered, swept fifteen days later.
func TestExpireStalePendingUpdates(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Expire")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)
	before := f.current(a.ID)
	v2 := f.active(b.ID, dayOne(2))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "deload week")
	require.NoError(t, err)

	report, err := f.sweeper.ExpireStalePendingUpdates(f.ctx, now().Add(13*24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, ExpiryReport{}, report)
	assert.True(t, f.reload(a.ID).HasPendingUpdate())

	report, err = f.sweeper.ExpireStalePendingUpdates(f.ctx, now().Add(15*24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, ExpiryReport{Scanned: 1, Expired: 1}, report)

	got := f.reload(a.ID)
	assert.False(t, got.HasPendingUpdate())
	assert.Equal(t, v1.ID, got.CurrentVersionID)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Equal(t, sessionIDs(before), sessionIDs(f.current(a.ID)))

	expired := f.events(a.ID, domain.EventUpdateExpired)
	require.Len(t, expired, 1)
	assert.Nil(t, expired[0].PerformedBy)
	assert.Equal(t, f.pro.ID, expired[0].ProfessionalID)
	assert.Equal(t, v2.ID, *expired[0].ToVersionID)
	assert.Equal(t, "deload week", expired[0].Notes)

	// running again finds nothing
	report, err = f.sweeper.ExpireStalePendingUpdates(f.ctx, now().Add(15*24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
}

func TestExpire_LosesToAcceptAfterRead(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Race")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)
	v2 := f.active(b.ID, dayOne(2))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)

	stale := f.reload(a.ID)
	_, err = f.negotiation.AcceptUpdate(f.ctx, a.ID, f.client.ID)
	require.NoError(t, err)

	err = f.sweeper.(*sweeper).expireOne(f.ctx, stale, now())
	assert.ErrorIs(t, err, ErrOverlayChanged)

	got := f.reload(a.ID)
	assert.Equal(t, v2.ID, got.CurrentVersionID, "the accepted update must survive the late sweep")
	assert.Empty(t, f.events(a.ID, domain.EventUpdateExpired))
}

func TestExpire_LosesToNewerPush(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Repush")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)
	v2 := f.active(b.ID, dayOne(2))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)

	stale := f.reload(a.ID)
	v3 := f.active(b.ID, dayOne(3))
	_, err = f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v3.ID, "")
	require.NoError(t, err)

	err = f.sweeper.(*sweeper).expireOne(f.ctx, stale, now())
	assert.ErrorIs(t, err, ErrOverlayChanged)
	assert.Equal(t, KindConcurrencyConflict, KindOf(err))

	got := f.reload(a.ID)
	require.NotNil(t, got.PendingUpdate)
	assert.Equal(t, v3.ID, got.PendingUpdate.VersionID)
}

func TestGetClientAssignments_ExpiresOnRead(t *testing.T) {
	f := newFixture(t, withSweepOnRead(), withSweepConfig(SweeperConfig{PendingExpiry: time.Millisecond}))
	b := f.blueprint("On read")
	v1 := f.active(b.ID, dayOne(1))
	a := f.accepted(v1.ID)
	v2 := f.active(b.ID, dayOne(2))
	_, err := f.negotiation.PushUpdate(f.ctx, a.ID, f.pro.ID, v2.ID, "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	got, err := f.assignments.GetClientAssignments(f.ctx, f.client.ID)
	require.NoError(t, err)
	require.Len(t, got.Active, 1)
	assert.False(t, got.Active[0].HasPendingUpdate())
	assert.Len(t, f.events(a.ID, domain.EventUpdateExpired), 1)
}
