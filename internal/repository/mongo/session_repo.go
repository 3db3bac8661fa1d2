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

const sessionCollectionName = "materialized_sessions"

type mongoSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

func (r *mongoSessionRepository) CreateMany(ctx context.Context, sessions []domain.MaterializedSession) error {
	if len(sessions) == 0 {
		return nil
	}
	docs := make([]interface{}, len(sessions))
	for i := range sessions {
		if sessions[i].ID == primitive.NilObjectID {
			sessions[i].ID = primitive.NewObjectID()
		}
		docs[i] = sessions[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return duplicate(err)
}

func (r *mongoSessionRepository) GetCurrentByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error) {
	filter := bson.M{"assignmentId": assignmentID, "isCurrent": true}
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

func (r *mongoSessionRepository) GetByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.MaterializedSession, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "materializedAt", Value: -1}, {Key: "dayNumber", Value: 1}})
	return r.find(ctx, bson.M{"assignmentId": assignmentID}, findOptions)
}

func (r *mongoSessionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.MaterializedSession, error) {
	sessions := []domain.MaterializedSession{}
	if err := findAll(ctx, r.collection, filter, &sessions, opts); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *mongoSessionRepository) SupersedeCurrent(ctx context.Context, assignmentID primitive.ObjectID, at time.Time) (int64, error) {
	filter := bson.M{"assignmentId": assignmentID, "isCurrent": true}
	update := bson.M{"$set": bson.M{"isCurrent": false, "supersededAt": at}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureSessionIndexes creates necessary indexes for the materialized sessions collection.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One current session per assignment and day
			Keys: bson.D{{Key: "assignmentId", Value: 1}, {Key: "dayNumber", Value: 1}},
			Options: options.Index().
				SetName("one_current_per_day").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isCurrent": true}),
		},
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}, {Key: "materializedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
