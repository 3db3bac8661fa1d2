package sessions

import (
	"alcyxob/coaching-programmes/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func entry(day, order int, name string, tags ...string) domain.ExerciseEntry {
	return domain.ExerciseEntry{
		ID:           primitive.NewObjectID(),
		DayNumber:    day,
		OrderInDay:   order,
		CustomName:   name,
		MuscleGroups: tags,
		Prescription: domain.Prescription{Sets: 3, Reps: "8-12", RestSeconds: 90, LoadDirective: domain.LoadOpen},
	}
}

func TestDerive_GroupsByDayAndOrders(t *testing.T) {
	versionID := primitive.NewObjectID()
	entries := []domain.ExerciseEntry{
		entry(3, 1, "Squat", "quads"),
		entry(1, 2, "Dips", "triceps"),
		entry(1, 1, "Bench Press", "chest"),
		entry(3, 2, "Romanian Deadlift", "hamstrings"),
	}

	got := Derive(versionID, entries, nil)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].DayNumber)
	assert.Equal(t, 3, got[1].DayNumber)

	require.Len(t, got[0].Exercises, 2)
	assert.Equal(t, "Bench Press", got[0].Exercises[0].Name)
	assert.Equal(t, "Dips", got[0].Exercises[1].Name)
	assert.Equal(t, "Push", got[0].FocusLabel)
	assert.Equal(t, "Day 1: Push", got[0].Name)

	assert.Equal(t, "Legs", got[1].FocusLabel)
	assert.Equal(t, versionID, got[1].VersionID)
}

func TestDerive_Empty(t *testing.T) {
	got := Derive(primitive.NewObjectID(), nil, nil)
	assert.Empty(t, got)
}

func TestDerive_SessionKeyDeterministic(t *testing.T) {
	versionID := primitive.NewObjectID()
	entries := []domain.ExerciseEntry{entry(2, 1, "Row", "back")}

	first := Derive(versionID, entries, nil)
	second := Derive(versionID, entries, nil)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].SessionKey, second[0].SessionKey)
	assert.Equal(t, SessionKey(versionID, 2), first[0].SessionKey)
	assert.NotEqual(t, SessionKey(versionID, 1), SessionKey(versionID, 2))
	assert.NotEqual(t, SessionKey(versionID, 1), SessionKey(primitive.NewObjectID(), 1))
}

func TestDerive_NameAndTagResolution(t *testing.T) {
	libID := primitive.NewObjectID()
	missingID := primitive.NewObjectID()
	catalog := Catalog{libID: {Name: "Pull-Up", MuscleGroup: "lats"}}

	fromLibrary := entry(1, 1, "")
	fromLibrary.ExerciseID = &libID

	overridden := entry(1, 2, "Weighted Pull-Up", "biceps")
	overridden.ExerciseID = &libID

	unresolved := entry(1, 3, "")
	unresolved.ExerciseID = &missingID

	got := Derive(primitive.NewObjectID(), []domain.ExerciseEntry{fromLibrary, overridden, unresolved}, catalog)
	require.Len(t, got, 1)
	ex := got[0].Exercises
	require.Len(t, ex, 3)

	assert.Equal(t, "Pull-Up", ex[0].Name)
	assert.Equal(t, []string{"lats"}, ex[0].MuscleGroups)
	assert.Equal(t, libID, *ex[0].ExerciseID)

	assert.Equal(t, "Weighted Pull-Up", ex[1].Name)
	assert.Equal(t, []string{"biceps"}, ex[1].MuscleGroups)

	assert.Equal(t, "Exercise", ex[2].Name)
	assert.Empty(t, ex[2].MuscleGroups)

	assert.Equal(t, "Pull", got[0].FocusLabel)
}

func TestDerive_CopiesPrescription(t *testing.T) {
	w := 100.0
	e := entry(1, 1, "Deadlift", "hamstrings")
	e.LoadDirective = domain.LoadAbsolute
	e.TargetWeight = &w
	e.Tempo = "3-1-1"

	got := Derive(primitive.NewObjectID(), []domain.ExerciseEntry{e}, nil)
	require.Len(t, got, 1)
	ex := got[0].Exercises[0]

	assert.Equal(t, e.ID, ex.EntryID)
	assert.Equal(t, 3, ex.Sets)
	assert.Equal(t, "8-12", ex.Reps)
	assert.Equal(t, "3-1-1", ex.Tempo)
	require.NotNil(t, ex.TargetWeight)
	assert.Equal(t, 100.0, *ex.TargetWeight)

	// the derived copy does not alias the entry
	w = 1
	assert.Equal(t, 100.0, *ex.TargetWeight)
}

type fixedLabel string

func (f fixedLabel) Label(int, []string) string { return string(f) }

func TestDeriver_CustomClassifier(t *testing.T) {
	d := Deriver{Classifier: fixedLabel("Conditioning")}
	got := d.Derive(primitive.NewObjectID(), []domain.ExerciseEntry{entry(4, 1, "Row Erg", "cardio")}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Conditioning", got[0].FocusLabel)
	assert.Equal(t, "Day 4: Conditioning", got[0].Name)
}

func TestDerive_UnlabelledDayName(t *testing.T) {
	got := Derive(primitive.NewObjectID(), []domain.ExerciseEntry{entry(5, 1, "Plank", "core")}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Day 5", got[0].FocusLabel)
	assert.Equal(t, "Day 5", got[0].Name)
}
