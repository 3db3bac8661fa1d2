package service

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateVersion_NumbersFromMaxPlusOne(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("5-Day Split")

	v1 := f.draft(b.ID, nil)
	v2 := f.draft(b.ID, nil)
	require.NoError(t, f.programmes.DeleteVersion(f.ctx, f.pro.ID, v1.ID))
	v3 := f.draft(b.ID, nil)

	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, 3, v3.VersionNumber)
	assert.Equal(t, domain.VersionDraft, v3.Status)
	assert.Nil(t, v3.PublishedAt)
}

func TestCreateVersion_RetriesWhenNumberTaken(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Retry")

	f.store.FailNext("versions.Create", repository.ErrDuplicate)
	v, err := f.programmes.CreateVersion(f.ctx, f.pro.ID, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, v.VersionNumber)
	assert.Len(t, f.versions(b.ID), 1)
}

func TestCreateVersion_Guards(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Guarded")

	_, err := f.programmes.CreateVersion(f.ctx, f.otherPro.ID, b.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.programmes.CreateVersion(f.ctx, f.pro.ID, primitive.NewObjectID(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.programmes.ArchiveBlueprint(f.ctx, f.pro.ID, b.ID)
	require.NoError(t, err)
	_, err = f.programmes.CreateVersion(f.ctx, f.pro.ID, b.ID, "")
	assert.ErrorIs(t, err, ErrBlueprintArchived)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestActivateVersion_ArchivesPreviousActive(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("5-Day Split")

	v1 := f.active(b.ID, dayOne(3))
	require.Equal(t, domain.VersionActive, v1.Status)
	require.NotNil(t, v1.PublishedAt)

	v2 := f.active(b.ID, dayOne(4))
	assert.Equal(t, domain.VersionActive, v2.Status)

	vs := f.versions(b.ID)
	assert.Equal(t, 1, activeCount(vs))
	assert.Equal(t, domain.VersionArchived, vs[0].Status)
	assert.Equal(t, v2.ID, vs[1].ID)
}

func TestActivateVersion_AlreadyActiveIsNoop(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Noop")
	v := f.active(b.ID, nil)

	again, err := f.programmes.ActivateVersion(f.ctx, f.pro.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VersionActive, again.Status)
	assert.Equal(t, v.PublishedAt, again.PublishedAt)
}

func TestActivateVersion_ArchivedFails(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Archived")
	v := f.draft(b.ID, nil)
	_, err := f.programmes.ArchiveVersion(f.ctx, f.pro.ID, v.ID)
	require.NoError(t, err)

	_, err = f.programmes.ActivateVersion(f.ctx, f.pro.ID, v.ID)
	assert.ErrorIs(t, err, ErrVersionArchived)
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}

func TestActivateVersion_NotOwner(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Mine")
	v := f.draft(b.ID, nil)

	_, err := f.programmes.ActivateVersion(f.ctx, f.otherPro.ID, v.ID)
	assert.ErrorIs(t, err, ErrBlueprintAccessDenied)
	assert.Equal(t, 0, activeCount(f.versions(b.ID)))
}

func TestActivateVersion_ConcurrentLeavesOneActive(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Race")

	var ids []primitive.ObjectID
	for i := 0; i < 8; i++ {
		ids = append(ids, f.draft(b.ID, nil).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			// Losers may fail cleanly; they must never leave two actives.
			_, _ = f.programmes.ActivateVersion(f.ctx, f.pro.ID, id)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, activeCount(f.versions(b.ID)))
}

func TestActivateVersion_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Atomic")
	v1 := f.active(b.ID, nil)
	v2 := f.draft(b.ID, nil)

	f.store.FailNext("versions.UpdateStatus", assert.AnError)
	_, err := f.programmes.ActivateVersion(f.ctx, f.pro.ID, v2.ID)
	require.Error(t, err)

	vs := f.versions(b.ID)
	require.Len(t, vs, 2)
	assert.Equal(t, v1.ID, vs[0].ID)
	assert.Equal(t, domain.VersionActive, vs[0].Status, "old version must not be archived by a failed activation")
	assert.Equal(t, domain.VersionDraft, vs[1].Status)
}

func TestDeleteVersion(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Delete")
	active := f.active(b.ID, dayOne(2))
	draft := f.draft(b.ID, dayOne(3))

	err := f.programmes.DeleteVersion(f.ctx, f.pro.ID, active.ID)
	assert.ErrorIs(t, err, ErrVersionActive)

	require.NoError(t, f.programmes.DeleteVersion(f.ctx, f.pro.ID, draft.ID))
	_, err = f.programmes.GetVersion(f.ctx, f.pro.ID, draft.ID)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	entries, err := f.store.Entries().GetByVersionID(f.ctx, draft.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSubmitForReviewThenActivate(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Reviewed")
	v := f.draft(b.ID, nil)

	v, err := f.programmes.SubmitForReview(f.ctx, f.pro.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VersionPendingReview, v.Status)

	_, err = f.programmes.SubmitForReview(f.ctx, f.pro.ID, v.ID)
	assert.ErrorIs(t, err, ErrVersionNotDraft)

	v, err = f.programmes.ActivateVersion(f.ctx, f.pro.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VersionActive, v.Status)
}

func TestCreateVersionFrom_CopiesEntries(t *testing.T) {
	f := newFixture(t)
	b := f.blueprint("Copy")
	v1 := f.active(b.ID, []EntryInput{openEntry("Squat", 1, "quads"), openEntry("Row", 2, "back")})

	v2, err := f.programmes.CreateVersionFrom(f.ctx, f.pro.ID, v1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, domain.VersionDraft, v2.Status)
	assert.Equal(t, "copy of v1", v2.Notes)

	src, err := f.store.Entries().GetByVersionID(f.ctx, v1.ID)
	require.NoError(t, err)
	dst, err := f.store.Entries().GetByVersionID(f.ctx, v2.ID)
	require.NoError(t, err)
	require.Len(t, dst, len(src))
	for i := range src {
		assert.NotEqual(t, src[i].ID, dst[i].ID)
		assert.Equal(t, v2.ID, dst[i].VersionID)
		assert.Equal(t, src[i].CustomName, dst[i].CustomName)
		assert.Equal(t, src[i].DayNumber, dst[i].DayNumber)
		assert.Equal(t, src[i].OrderInDay, dst[i].OrderInDay)
	}
}

func TestCloneTemplate(t *testing.T) {
	f := newFixture(t)
	template, err := f.programmes.CreateBlueprint(f.ctx, f.otherPro.ID, BlueprintInput{Name: "Starter", IsTemplate: true})
	require.NoError(t, err)

	v, err := f.programmes.CreateVersion(f.ctx, f.otherPro.ID, template.ID, "")
	require.NoError(t, err)
	_, err = f.sets.SetVersionExercises(f.ctx, f.otherPro.ID, v.ID, dayOne(2))
	require.NoError(t, err)

	_, _, err = f.programmes.CloneTemplate(f.ctx, f.pro.ID, template.ID)
	assert.ErrorIs(t, err, ErrVersionNotActive, "a template without an active version cannot be cloned")

	_, err = f.programmes.ActivateVersion(f.ctx, f.otherPro.ID, v.ID)
	require.NoError(t, err)

	clone, cv, err := f.programmes.CloneTemplate(f.ctx, f.pro.ID, template.ID)
	require.NoError(t, err)
	assert.Equal(t, f.pro.ID, clone.OwnerID)
	assert.False(t, clone.IsTemplate)
	assert.Equal(t, 1, cv.VersionNumber)
	assert.Equal(t, domain.VersionDraft, cv.Status)

	entries, err := f.sets.ListEntries(f.ctx, f.pro.ID, cv.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	mine := f.blueprint("Not a template")
	_, _, err = f.programmes.CloneTemplate(f.ctx, f.pro.ID, mine.ID)
	assert.ErrorIs(t, err, ErrNotATemplate)
}

func TestBlueprintVisibility(t *testing.T) {
	f := newFixture(t)
	private := f.blueprint("Private")
	template, err := f.programmes.CreateBlueprint(f.ctx, f.pro.ID, BlueprintInput{Name: "Shared", IsTemplate: true})
	require.NoError(t, err)

	_, err = f.programmes.GetBlueprint(f.ctx, f.otherPro.ID, private.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	got, err := f.programmes.GetBlueprint(f.ctx, f.otherPro.ID, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shared", got.Name)

	_, err = f.programmes.ArchiveBlueprint(f.ctx, f.pro.ID, private.ID)
	require.NoError(t, err)

	live, err := f.programmes.ListBlueprints(f.ctx, f.pro.ID, false)
	require.NoError(t, err)
	assert.Len(t, live, 1)

	all, err := f.programmes.ListBlueprints(f.ctx, f.pro.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	templates, err := f.programmes.ListTemplates(f.ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, template.ID, templates[0].ID)
}

func TestCreateBlueprint_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.programmes.CreateBlueprint(f.ctx, f.pro.ID, BlueprintInput{Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}
