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

const assignmentCollectionName = "assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository.
// Every write is one UpdateOne whose filter carries the precondition, so the
// database decides races; a zero match count is reported as ErrConflict.
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new Assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new assignment into the database.
func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	assignment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	if assignment.StatusChangedAt.IsZero() {
		assignment.StatusChangedAt = now
	}

	if _, err := r.collection.InsertOne(ctx, assignment); err != nil {
		return primitive.NilObjectID, duplicate(err)
	}
	return assignment.ID, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		return nil, notFound(err)
	}
	return &assignment, nil
}

// GetByClientID retrieves a client's assignments, optionally narrowed to statuses.
func (r *mongoAssignmentRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID, statuses ...domain.AssignmentStatus) ([]domain.Assignment, error) {
	filter := bson.M{"clientId": clientID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return r.find(ctx, filter)
}

// GetByProID retrieves all assignments offered by a professional.
func (r *mongoAssignmentRepository) GetByProID(ctx context.Context, proID primitive.ObjectID) ([]domain.Assignment, error) {
	return r.find(ctx, bson.M{"assignedByProId": proID})
}

func (r *mongoAssignmentRepository) find(ctx context.Context, filter bson.M) ([]domain.Assignment, error) {
	assignments := []domain.Assignment{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := findAll(ctx, r.collection, filter, &assignments, findOptions); err != nil {
		return nil, err
	}
	return assignments, nil
}

// --- Conditional updates ---

func (r *mongoAssignmentRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to domain.AssignmentStatus, change repository.StatusChange) error {
	set := bson.M{
		"status":          to,
		"statusChangedAt": change.At,
		"updatedAt":       change.At,
	}
	if change.AcceptedAt != nil {
		set["acceptedAt"] = *change.AcceptedAt
	}
	if change.RejectedAt != nil {
		set["rejectedAt"] = *change.RejectedAt
	}
	if change.Notes != nil {
		set["notes"] = *change.Notes
	}
	update := bson.M{"$set": set}
	if change.ClearPending {
		update["$unset"] = bson.M{"pendingUpdate": ""}
	}

	return r.conditional(ctx, bson.M{"_id": id, "status": from}, update)
}

func (r *mongoAssignmentRepository) SetPendingUpdate(ctx context.Context, id primitive.ObjectID, pending domain.PendingUpdate, at time.Time) error {
	filter := bson.M{"_id": id, "status": domain.StatusActive}
	update := bson.M{"$set": bson.M{"pendingUpdate": pending, "updatedAt": at}}
	return r.conditional(ctx, filter, update)
}

func (r *mongoAssignmentRepository) ApplyPendingUpdate(ctx context.Context, id primitive.ObjectID, expect repository.OverlayExpectation, at time.Time) error {
	update := bson.M{
		"$set":   bson.M{"currentVersionId": expect.PendingVersionID, "updatedAt": at},
		"$unset": bson.M{"pendingUpdate": ""},
	}
	return r.conditional(ctx, overlayFilter(id, expect), update)
}

func (r *mongoAssignmentRepository) ClearPendingUpdate(ctx context.Context, id primitive.ObjectID, expect repository.OverlayExpectation, at time.Time) error {
	update := bson.M{
		"$set":   bson.M{"updatedAt": at},
		"$unset": bson.M{"pendingUpdate": ""},
	}
	return r.conditional(ctx, overlayFilter(id, expect), update)
}

// overlayFilter matches the row only while its overlay is the one the caller read.
func overlayFilter(id primitive.ObjectID, expect repository.OverlayExpectation) bson.M {
	return bson.M{
		"_id":                     id,
		"status":                  domain.StatusActive,
		"currentVersionId":        expect.CurrentVersionID,
		"pendingUpdate.versionId": expect.PendingVersionID,
		"pendingUpdate.createdAt": expect.PendingCreatedAt,
	}
}

func (r *mongoAssignmentRepository) conditional(ctx context.Context, filter bson.M, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, filter["_id"])
	}
	return nil
}

func (r *mongoAssignmentRepository) missOrConflict(ctx context.Context, id interface{}) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// --- Sweeps ---

func (r *mongoAssignmentRepository) FindStalePending(ctx context.Context, before time.Time, clientID *primitive.ObjectID) ([]domain.Assignment, error) {
	filter := bson.M{
		"status":                  domain.StatusActive,
		"pendingUpdate.createdAt": bson.M{"$lt": before},
	}
	if clientID != nil {
		filter["clientId"] = *clientID
	}
	return r.find(ctx, filter)
}

func (r *mongoAssignmentRepository) FindRejectedBefore(ctx context.Context, before time.Time, clientID *primitive.ObjectID) ([]domain.Assignment, error) {
	filter := rejectedBeforeFilter(before)
	if clientID != nil {
		filter["clientId"] = *clientID
	}
	return r.find(ctx, filter)
}

func (r *mongoAssignmentRepository) DeleteRejected(ctx context.Context, id primitive.ObjectID, before time.Time) error {
	filter := rejectedBeforeFilter(before)
	filter["_id"] = id

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func rejectedBeforeFilter(before time.Time) bson.M {
	return bson.M{
		"status":     domain.StatusRejected,
		"rejectedAt": bson.M{"$lt": before},
	}
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Client lists filtered by status, newest first
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "assignedByProId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Expiry sweep
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "pendingUpdate.createdAt", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{"pendingUpdate": bson.M{"$exists": true}}),
		},
		{
			// Rejected cleanup
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "rejectedAt", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{"status": domain.StatusRejected}),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
