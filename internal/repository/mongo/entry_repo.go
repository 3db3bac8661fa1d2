package mongo

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const entryCollectionName = "exercise_entries"

// mongoEntryRepository implements repository.ExerciseEntryRepository
type mongoEntryRepository struct {
	collection *mongo.Collection
}

func NewMongoEntryRepository(db *mongo.Database) repository.ExerciseEntryRepository {
	return &mongoEntryRepository{
		collection: db.Collection(entryCollectionName),
	}
}

// CreateMany inserts a version's entries. Supplied ids and creation times are
// kept so a rewrite preserves entry identity.
func (r *mongoEntryRepository) CreateMany(ctx context.Context, entries []domain.ExerciseEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, len(entries))
	for i := range entries {
		if entries[i].ID == primitive.NilObjectID {
			entries[i].ID = primitive.NewObjectID()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
		entries[i].UpdatedAt = now
		docs[i] = entries[i]
	}

	_, err := r.collection.InsertMany(ctx, docs)
	return duplicate(err)
}

func (r *mongoEntryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseEntry, error) {
	var entry domain.ExerciseEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (r *mongoEntryRepository) GetByVersionID(ctx context.Context, versionID primitive.ObjectID) ([]domain.ExerciseEntry, error) {
	entries := []domain.ExerciseEntry{}
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}, {Key: "orderInDay", Value: 1}})
	if err := findAll(ctx, r.collection, bson.M{"versionId": versionID}, &entries, findOptions); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *mongoEntryRepository) DeleteByVersionID(ctx context.Context, versionID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"versionId": versionID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureEntryIndexes creates necessary indexes for the exercise entries collection.
func EnsureEntryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One slot per (version, day, position)
			Keys: bson.D{
				{Key: "versionId", Value: 1},
				{Key: "dayNumber", Value: 1},
				{Key: "orderInDay", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
