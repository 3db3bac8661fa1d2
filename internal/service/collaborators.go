package service

import (
	"alcyxob/coaching-programmes/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationshipVerifier answers whether a professional currently coaches a client.
type RelationshipVerifier interface {
	IsActiveRelationship(ctx context.Context, professionalID, clientID primitive.ObjectID) (bool, error)
}

// GoalLookup resolves a blueprint goal to a display name. Optional.
type GoalLookup interface {
	GoalName(ctx context.Context, goalID primitive.ObjectID) (string, error)
}

// userRelationshipVerifier reads the link the host platform keeps on user records.
type userRelationshipVerifier struct {
	userRepo repository.UserRepository
}

// NewUserRelationshipVerifier checks relationships against the users collection.
func NewUserRelationshipVerifier(userRepo repository.UserRepository) RelationshipVerifier {
	return &userRelationshipVerifier{userRepo: userRepo}
}

func (v *userRelationshipVerifier) IsActiveRelationship(ctx context.Context, professionalID, clientID primitive.ObjectID) (bool, error) {
	client, err := v.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrClientNotFound
		}
		return false, err
	}
	return client.CoachedBy(professionalID), nil
}

// StaticGoals is a fixed GoalLookup, for seeds and tests.
type StaticGoals map[primitive.ObjectID]string

func (g StaticGoals) GoalName(_ context.Context, goalID primitive.ObjectID) (string, error) {
	return g[goalID], nil
}
