package mongo

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const versionCollectionName = "blueprint_versions"

// mongoVersionRepository implements repository.VersionRepository.
// The unique indexes created by EnsureVersionIndexes back the numbering and
// single-active rules; their violations surface as repository.ErrDuplicate.
type mongoVersionRepository struct {
	collection *mongo.Collection
}

func NewMongoVersionRepository(db *mongo.Database) repository.VersionRepository {
	return &mongoVersionRepository{
		collection: db.Collection(versionCollectionName),
	}
}

func (r *mongoVersionRepository) Create(ctx context.Context, version *domain.Version) (primitive.ObjectID, error) {
	version.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	version.CreatedAt = now
	version.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, version); err != nil {
		version.ID = primitive.NilObjectID
		return primitive.NilObjectID, duplicate(err)
	}
	return version.ID, nil
}

func (r *mongoVersionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Version, error) {
	var version domain.Version
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&version)
	if err != nil {
		return nil, notFound(err)
	}
	return &version, nil
}

func (r *mongoVersionRepository) GetByBlueprintID(ctx context.Context, blueprintID primitive.ObjectID) ([]domain.Version, error) {
	versions := []domain.Version{}
	findOptions := options.Find().SetSort(bson.D{{Key: "versionNumber", Value: 1}})
	if err := findAll(ctx, r.collection, bson.M{"blueprintId": blueprintID}, &versions, findOptions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *mongoVersionRepository) MaxVersionNumber(ctx context.Context, blueprintID primitive.ObjectID) (int, error) {
	var latest domain.Version
	opts := options.FindOne().
		SetSort(bson.D{{Key: "versionNumber", Value: -1}}).
		SetProjection(bson.M{"versionNumber": 1})

	err := r.collection.FindOne(ctx, bson.M{"blueprintId": blueprintID}, opts).Decode(&latest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return latest.VersionNumber, nil
}

func (r *mongoVersionRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from []domain.VersionStatus, to domain.VersionStatus, publishedAt *time.Time) error {
	set := bson.M{"status": to, "updatedAt": time.Now().UTC()}
	if publishedAt != nil {
		set["publishedAt"] = *publishedAt
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": from}}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return duplicate(err)
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *mongoVersionRepository) ArchiveActive(ctx context.Context, blueprintID, exceptID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"blueprintId": blueprintID,
		"status":      domain.VersionActive,
		"_id":         bson.M{"$ne": exceptID},
	}
	update := bson.M{"$set": bson.M{"status": domain.VersionArchived, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *mongoVersionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// missOrConflict tells a missing row apart from a failed status precondition.
func (r *mongoVersionRepository) missOrConflict(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// EnsureVersionIndexes creates the version indexes, including the two unique
// ones the activation protocol relies on.
func EnsureVersionIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One row per version number
			Keys:    bson.D{{Key: "blueprintId", Value: 1}, {Key: "versionNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// At most one active version per blueprint
			Keys: bson.D{{Key: "blueprintId", Value: 1}},
			Options: options.Index().
				SetName("one_active_per_blueprint").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.VersionActive}),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
