package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMuscleGroupClassifier_Label(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name string
		day  int
		tags []string
		want string
	}{
		{"push only", 1, []string{"chest", "triceps"}, "Push"},
		{"pull only", 2, []string{"lats", "biceps", "rear delts"}, "Pull"},
		{"legs only", 3, []string{"quads", "glutes"}, "Legs"},
		{"push and pull", 1, []string{"chest", "back"}, "Upper Body"},
		{"all three", 4, []string{"chest", "back", "hamstrings"}, "Full Body"},
		{"legs and push", 5, []string{"calves", "shoulders"}, "Lower + Upper Mix"},
		{"legs and pull", 5, []string{"legs", "traps"}, "Lower + Upper Mix"},
		{"unknown tags fall back", 6, []string{"core", "cardio"}, "Day 6"},
		{"no tags", 2, nil, "Day 2"},
		{"broad push tag", 1, []string{"push"}, "Push"},
		{"broad pull tag", 2, []string{"Pull"}, "Pull"},
		{"broad push and pull tags", 1, []string{"push", "pull"}, "Upper Body"},
		{"unknown tags ignored next to known", 1, []string{"core", "chest"}, "Push"},
		{"case and separators normalized", 1, []string{" Front_Delts ", "REAR-DELTS"}, "Upper Body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Label(tt.day, tt.tags))
		})
	}
}

func TestMuscleGroupClassifier_CustomTable(t *testing.T) {
	c := MuscleGroupClassifier{Groups: map[string]MovementGroup{"core": Legs}}

	assert.Equal(t, "Legs", c.Label(1, []string{"core"}))
	// chest is not in the custom table
	assert.Equal(t, "Day 1", c.Label(1, []string{"chest"}))
}

func TestMuscleGroupClassifier_ZeroValueUsesDefaults(t *testing.T) {
	var c MuscleGroupClassifier
	assert.Equal(t, "Pull", c.Label(1, []string{"back"}))
}
