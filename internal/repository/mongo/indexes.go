package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates every index the repositories rely on. The unique
// ones are part of correctness, so a failure stops startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		collection string
		ensure     func(context.Context, *mongo.Collection) error
	}{
		{exerciseCollectionName, EnsureExerciseIndexes},
		{blueprintCollectionName, EnsureBlueprintIndexes},
		{versionCollectionName, EnsureVersionIndexes},
		{entryCollectionName, EnsureEntryIndexes},
		{assignmentCollectionName, EnsureAssignmentIndexes},
		{sessionCollectionName, EnsureSessionIndexes},
		{eventCollectionName, EnsureEventIndexes},
	}
	for _, step := range steps {
		if err := step.ensure(ctx, db.Collection(step.collection)); err != nil {
			return fmt.Errorf("creating indexes for %s: %w", step.collection, err)
		}
	}
	return nil
}
