// Package sessions derives day-grouped training sessions from a version's
// exercise entries. Everything here is pure: no storage, no clock.
package sessions

import (
	"alcyxob/coaching-programmes/internal/domain"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// sessionNamespace seeds the name-based UUIDs used as session keys.
var sessionNamespace = uuid.MustParse("6f1c2d8e-3b4a-5c6d-8e9f-0a1b2c3d4e5f")

const fallbackExerciseName = "Exercise"

// CatalogExercise is what the shared exercise library knows about an entry.
type CatalogExercise struct {
	Name        string
	MuscleGroup string
}

// CatalogLookup resolves library references. Implementations must be read-only.
type CatalogLookup interface {
	Lookup(exerciseID primitive.ObjectID) (CatalogExercise, bool)
}

// Catalog is a prefetched CatalogLookup.
type Catalog map[primitive.ObjectID]CatalogExercise

func (c Catalog) Lookup(id primitive.ObjectID) (CatalogExercise, bool) {
	ex, ok := c[id]
	return ex, ok
}

// Session is one derived training day.
type Session struct {
	SessionKey string                   `json:"sessionKey"`
	VersionID  primitive.ObjectID       `json:"versionId"`
	DayNumber  int                      `json:"dayNumber"`
	Name       string                   `json:"name"`
	FocusLabel string                   `json:"focusLabel"`
	Exercises  []domain.SessionExercise `json:"exercises"`
}

// Deriver groups entries into sessions using Classifier for focus labels.
type Deriver struct {
	Classifier FocusClassifier
}

// NewDeriver returns a deriver using the default push/pull/legs table.
func NewDeriver() Deriver {
	return Deriver{Classifier: DefaultClassifier()}
}

// Derive is NewDeriver().Derive.
func Derive(versionID primitive.ObjectID, entries []domain.ExerciseEntry, lookup CatalogLookup) []Session {
	return NewDeriver().Derive(versionID, entries, lookup)
}

// SessionKey is the deterministic key of (version, day).
func SessionKey(versionID primitive.ObjectID, dayNumber int) string {
	return uuid.NewSHA1(sessionNamespace, []byte(versionID.Hex()+":"+strconv.Itoa(dayNumber))).String()
}

// Derive returns one session per distinct day, ordered by day number, with
// exercises ordered by their position in the day.
func (d Deriver) Derive(versionID primitive.ObjectID, entries []domain.ExerciseEntry, lookup CatalogLookup) []Session {
	classifier := d.Classifier
	if classifier == nil {
		classifier = DefaultClassifier()
	}

	byDay := make(map[int][]domain.ExerciseEntry)
	for _, e := range entries {
		byDay[e.DayNumber] = append(byDay[e.DayNumber], e)
	}

	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	out := make([]Session, 0, len(days))
	for _, day := range days {
		dayEntries := byDay[day]
		sort.SliceStable(dayEntries, func(i, j int) bool { return dayEntries[i].OrderInDay < dayEntries[j].OrderInDay })

		var tags []string
		exercises := make([]domain.SessionExercise, 0, len(dayEntries))
		for _, e := range dayEntries {
			ex := toSessionExercise(e, lookup)
			tags = append(tags, ex.MuscleGroups...)
			exercises = append(exercises, ex)
		}

		focus := classifier.Label(day, tags)
		out = append(out, Session{
			SessionKey: SessionKey(versionID, day),
			VersionID:  versionID,
			DayNumber:  day,
			Name:       sessionName(day, focus),
			FocusLabel: focus,
			Exercises:  exercises,
		})
	}
	return out
}

func toSessionExercise(e domain.ExerciseEntry, lookup CatalogLookup) domain.SessionExercise {
	var catalog CatalogExercise
	var found bool
	if e.ExerciseID != nil && lookup != nil {
		catalog, found = lookup.Lookup(*e.ExerciseID)
	}

	name := strings.TrimSpace(e.CustomName)
	if name == "" && found {
		name = catalog.Name
	}
	if name == "" {
		name = fallbackExerciseName
	}

	tags := append([]string(nil), e.MuscleGroups...)
	if len(tags) == 0 && found && catalog.MuscleGroup != "" {
		tags = []string{catalog.MuscleGroup}
	}

	prescription := e.Prescription
	if prescription.TargetWeight != nil {
		w := *prescription.TargetWeight
		prescription.TargetWeight = &w
	}

	var exerciseID *primitive.ObjectID
	if e.ExerciseID != nil {
		id := *e.ExerciseID
		exerciseID = &id
	}

	return domain.SessionExercise{
		EntryID:      e.ID,
		ExerciseID:   exerciseID,
		Name:         name,
		OrderInDay:   e.OrderInDay,
		MuscleGroups: tags,
		Notes:        e.Notes,
		Prescription: prescription,
	}
}

func sessionName(day int, focus string) string {
	dayLabel := fmt.Sprintf("Day %d", day)
	if focus == dayLabel {
		return dayLabel
	}
	return dayLabel + ": " + focus
}
