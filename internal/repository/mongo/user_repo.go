package mongo

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

// mongoUserRepository reads the users collection the host platform owns.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// GetByID retrieves a user by their unique ID. Only the fields relationship
// checks need are projected.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"_id": id}
	opts := options.FindOne().SetProjection(bson.M{
		"name":           1,
		"role":           1,
		"clientIds":      1,
		"professionalId": 1,
		"createdAt":      1,
		"updatedAt":      1,
	})

	err := r.collection.FindOne(ctx, filter, opts).Decode(&user)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
