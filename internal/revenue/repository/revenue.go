package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloomly/pkg/config"
	"bloomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "PlatformRevenues"
)

var (
	ErrNotFound = errors.New("platform revenue record not found")
)

// RevenueRepository tracks the platform's own cut of settlements and
// point purchases. A revenue record follows its linked transaction:
// created pending, completed only on confirmed external payment.
type RevenueRepository interface {
	Create(ctx context.Context, revenue *model.PlatformRevenue) error
	FindByTransactionID(ctx context.Context, transactionID string) (*model.PlatformRevenue, error)
	// SetStatusByTransactionID moves the revenue record linked to a
	// transaction out of pending. Missing records yield ErrNotFound.
	SetStatusByTransactionID(ctx context.Context, transactionID, status string) error
}

type mongoRevenueRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRevenueRepository(cfg *config.Config) RevenueRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRevenueRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoRevenueRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRevenueRepository) Create(ctx context.Context, revenue *model.PlatformRevenue) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	revenue.CreatedAt = now
	revenue.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, revenue)
	if err != nil {
		return fmt.Errorf("failed to create platform revenue record: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		revenue.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRevenueRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.PlatformRevenue, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var revenue model.PlatformRevenue
	err := r.collection.FindOne(ctx, bson.M{"transaction_id": transactionID}).Decode(&revenue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find platform revenue record: %w", err)
	}

	return &revenue, nil
}

func (r *mongoRevenueRepository) SetStatusByTransactionID(ctx context.Context, transactionID, status string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"transaction_id": transactionID, "status": model.RevenuePending},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update platform revenue status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
