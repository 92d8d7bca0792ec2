package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pointserrors "bloomly/internal/points/errors"
	"bloomly/pkg/config"
	"bloomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "PointTransactions"
)

type PointTransactionRepository interface {
	Create(ctx context.Context, tx *model.PointTransaction) error
	FindByID(ctx context.Context, id string) (*model.PointTransaction, error)
	FindByPartner(ctx context.Context, partnerID string, limit int, offset int64) ([]*model.PointTransaction, error)
	// SetExternalSessionID links a freshly created checkout session to
	// its pending transaction.
	SetExternalSessionID(ctx context.Context, id, sessionID string) error
	// CompleteBySessionID flips the pending transaction for a session
	// to completed and returns it. The (external_session_id, pending)
	// match is the webhook idempotency boundary: a replayed
	// confirmation finds nothing and yields ErrSessionNotPending.
	CompleteBySessionID(ctx context.Context, sessionID string) (*model.PointTransaction, error)
}

type mongoPointTransactionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPointTransactionRepository(cfg *config.Config) PointTransactionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPointTransactionRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPointTransactionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoPointTransactionRepository) Create(ctx context.Context, tx *model.PointTransaction) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	tx.CreatedAt = now
	tx.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to create point transaction: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		tx.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPointTransactionRepository) FindByID(ctx context.Context, id string) (*model.PointTransaction, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pointserrors.ErrInvalidID, id)
	}

	var tx model.PointTransaction
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pointserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find point transaction: %w", err)
	}

	return &tx, nil
}

func (r *mongoPointTransactionRepository) FindByPartner(ctx context.Context, partnerID string, limit int, offset int64) ([]*model.PointTransaction, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"partner_id": partnerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list point transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var txs []*model.PointTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode point transactions: %w", err)
	}
	return txs, nil
}

func (r *mongoPointTransactionRepository) SetExternalSessionID(ctx context.Context, id, sessionID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", pointserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{
			"external_session_id": sessionID,
			"updated_at":          time.Now().UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to link checkout session: %w", err)
	}
	if result.MatchedCount == 0 {
		return pointserrors.ErrNotFound
	}
	return nil
}

func (r *mongoPointTransactionRepository) CompleteBySessionID(ctx context.Context, sessionID string) (*model.PointTransaction, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"external_session_id": sessionID,
		"status":              model.PointTxPending,
	}
	update := bson.M{"$set": bson.M{
		"status":     model.PointTxCompleted,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tx model.PointTransaction
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pointserrors.ErrSessionNotPending
		}
		return nil, fmt.Errorf("failed to complete point transaction: %w", err)
	}

	return &tx, nil
}
