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

const eventCollectionName = "assignment_events"

// mongoEventRepository is append-only: there is no update or delete.
type mongoEventRepository struct {
	collection *mongo.Collection
}

func NewMongoEventRepository(db *mongo.Database) repository.EventRepository {
	return &mongoEventRepository{
		collection: db.Collection(eventCollectionName),
	}
}

func (r *mongoEventRepository) Append(ctx context.Context, event *domain.AssignmentEvent) error {
	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *mongoEventRepository) GetByAssignmentID(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.AssignmentEvent, error) {
	return r.find(ctx, bson.M{"assignmentId": assignmentID})
}

// GetByClientID returns a client's feed, optionally only events at or after since.
func (r *mongoEventRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID, since *time.Time) ([]domain.AssignmentEvent, error) {
	filter := bson.M{"clientId": clientID}
	if since != nil {
		filter["createdAt"] = bson.M{"$gte": *since}
	}
	return r.find(ctx, filter)
}

// find returns events oldest first; ObjectIDs break ties within a millisecond.
func (r *mongoEventRepository) find(ctx context.Context, filter bson.M) ([]domain.AssignmentEvent, error) {
	events := []domain.AssignmentEvent{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, r.collection, filter, &events, findOptions); err != nil {
		return nil, err
	}
	return events, nil
}

// EnsureEventIndexes creates necessary indexes for the event feed.
func EnsureEventIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
