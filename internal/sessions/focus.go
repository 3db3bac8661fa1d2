package sessions

import (
	"fmt"
	"strings"
)

// FocusClassifier turns the muscle groups trained on a day into a display label.
type FocusClassifier interface {
	Label(dayNumber int, muscleGroups []string) string
}

// MovementGroup is a bit set of the broad groups a muscle tag belongs to.
type MovementGroup int

const (
	Push MovementGroup = 1 << iota
	Pull
	Legs
)

var defaultGroups = map[string]MovementGroup{
	"push":        Push,
	"chest":       Push,
	"shoulders":   Push,
	"triceps":     Push,
	"front delts": Push,

	"pull":       Pull,
	"back":       Pull,
	"lats":       Pull,
	"biceps":     Pull,
	"rear delts": Pull,
	"traps":      Pull,
	"forearms":   Pull,

	"quads":      Legs,
	"quadriceps": Legs,
	"hamstrings": Legs,
	"glutes":     Legs,
	"calves":     Legs,
	"legs":       Legs,
	"adductors":  Legs,
	"abductors":  Legs,
}

// MuscleGroupClassifier is the push/pull/legs rule table. Tags it does not
// know (core, cardio, ...) are ignored.
type MuscleGroupClassifier struct {
	Groups map[string]MovementGroup
}

// DefaultClassifier returns the classifier used when none is configured.
func DefaultClassifier() MuscleGroupClassifier {
	return MuscleGroupClassifier{Groups: defaultGroups}
}

func (c MuscleGroupClassifier) Label(dayNumber int, muscleGroups []string) string {
	groups := c.Groups
	if groups == nil {
		groups = defaultGroups
	}

	var seen MovementGroup
	for _, tag := range muscleGroups {
		seen |= groups[normalizeTag(tag)]
	}

	switch seen {
	case Push:
		return "Push"
	case Pull:
		return "Pull"
	case Legs:
		return "Legs"
	case Push | Pull | Legs:
		return "Full Body"
	case Push | Pull:
		return "Upper Body"
	case Legs | Push, Legs | Pull:
		return "Lower + Upper Mix"
	}
	return fmt.Sprintf("Day %d", dayNumber)
}

func normalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.ReplaceAll(t, "_", " ")
	t = strings.ReplaceAll(t, "-", " ")
	return t
}
