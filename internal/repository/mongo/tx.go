package mongo

import (
	"alcyxob/coaching-programmes/internal/repository"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor runs repository calls in a multi-document transaction.
type Transactor struct {
	client *mongo.Client
}

var _ repository.Transactor = (*Transactor)(nil)

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTransaction starts a session and runs fn inside session.WithTransaction,
// which retries on transient transaction errors. A ctx that already carries a
// session joins it instead of nesting.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
