package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	partnerserrors "bloomly/internal/partners/errors"
	"bloomly/pkg/config"
	"bloomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Partners"
)

type PartnerRepository interface {
	Create(ctx context.Context, partner *model.Partner) error
	FindByID(ctx context.Context, id string) (*model.Partner, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Partner, error)
	// IncrementPoints adds delta to the partner's points balance.
	IncrementPoints(ctx context.Context, id string, delta int64) error
}

type mongoPartnerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPartnerRepository(cfg *config.Config) PartnerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPartnerRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoPartnerRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoPartnerRepository) Create(ctx context.Context, partner *model.Partner) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	partner.CreatedAt = now
	partner.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, partner)
	if err != nil {
		return fmt.Errorf("failed to create partner: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		partner.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPartnerRepository) FindByID(ctx context.Context, id string) (*model.Partner, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", partnerserrors.ErrInvalidID, id)
	}

	var partner model.Partner
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&partner)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, partnerserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find partner: %w", err)
	}

	return &partner, nil
}

func (r *mongoPartnerRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Partner, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	defer cursor.Close(ctx)

	var partners []*model.Partner
	if err := cursor.All(ctx, &partners); err != nil {
		return nil, fmt.Errorf("failed to decode partners: %w", err)
	}
	return partners, nil
}

func (r *mongoPartnerRepository) IncrementPoints(ctx context.Context, id string, delta int64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", partnerserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{
			"$inc": bson.M{"points_balance": delta},
			"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment partner points: %w", err)
	}
	if result.MatchedCount == 0 {
		return partnerserrors.ErrNotFound
	}
	return nil
}
