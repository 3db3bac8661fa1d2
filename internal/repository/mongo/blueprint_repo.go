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

const blueprintCollectionName = "blueprints"

// mongoBlueprintRepository implements repository.BlueprintRepository
type mongoBlueprintRepository struct {
	collection *mongo.Collection
}

func NewMongoBlueprintRepository(db *mongo.Database) repository.BlueprintRepository {
	return &mongoBlueprintRepository{
		collection: db.Collection(blueprintCollectionName),
	}
}

func (r *mongoBlueprintRepository) Create(ctx context.Context, blueprint *domain.Blueprint) (primitive.ObjectID, error) {
	blueprint.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	blueprint.CreatedAt = now
	blueprint.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, blueprint); err != nil {
		return primitive.NilObjectID, duplicate(err)
	}
	return blueprint.ID, nil
}

func (r *mongoBlueprintRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Blueprint, error) {
	var blueprint domain.Blueprint
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&blueprint)
	if err != nil {
		return nil, notFound(err)
	}
	return &blueprint, nil
}

// GetByOwnerID lists a professional's blueprints, newest first.
func (r *mongoBlueprintRepository) GetByOwnerID(ctx context.Context, ownerID primitive.ObjectID, includeArchived bool) ([]domain.Blueprint, error) {
	filter := bson.M{"ownerId": ownerID}
	if !includeArchived {
		filter["isArchived"] = false
	}
	return r.find(ctx, filter)
}

func (r *mongoBlueprintRepository) GetTemplates(ctx context.Context) ([]domain.Blueprint, error) {
	return r.find(ctx, bson.M{"isTemplate": true, "isArchived": false})
}

func (r *mongoBlueprintRepository) find(ctx context.Context, filter bson.M) ([]domain.Blueprint, error) {
	blueprints := []domain.Blueprint{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := findAll(ctx, r.collection, filter, &blueprints, findOptions); err != nil {
		return nil, err
	}
	return blueprints, nil
}

func (r *mongoBlueprintRepository) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) error {
	update := bson.M{"$set": bson.M{"isArchived": archived, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureBlueprintIndexes creates necessary indexes for the blueprints collection.
func EnsureBlueprintIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Owner listing sorted by date
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "isTemplate", Value: 1}, {Key: "isArchived", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
