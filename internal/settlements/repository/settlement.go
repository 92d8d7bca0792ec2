package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	settlementserrors "bloomly/internal/settlements/errors"
	"bloomly/pkg/config"
	"bloomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Settlements"
)

// StatusPatch is the field set a settlement transition writes. Nil
// fields are left untouched.
type StatusPatch struct {
	Status       *string
	Notes        *string
	TransferInfo *model.TransferInfo
}

type SettlementRepository interface {
	// Create persists a new pending settlement. The unique period
	// index turns a duplicate into ErrDuplicate.
	Create(ctx context.Context, settlement *model.Settlement) error
	FindByID(ctx context.Context, id string) (*model.Settlement, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Settlement, error)
	Count(ctx context.Context) (int64, error)
	// UpdateStatusIf applies patch only while the settlement's status
	// is one of fromStatuses, returning the post-update document. A
	// settlement that moved concurrently yields ErrStateChanged.
	UpdateStatusIf(ctx context.Context, id string, fromStatuses []string, patch StatusPatch) (*model.Settlement, error)
}

type mongoSettlementRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSettlementRepository(cfg *config.Config) SettlementRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSettlementRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSettlementRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSettlementRepository) Create(ctx context.Context, settlement *model.Settlement) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	settlement.CreatedAt = now
	settlement.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, settlement)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return settlementserrors.ErrDuplicate
		}
		return fmt.Errorf("failed to create settlement: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		settlement.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSettlementRepository) FindByID(ctx context.Context, id string) (*model.Settlement, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", settlementserrors.ErrInvalidID, id)
	}

	var settlement model.Settlement
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&settlement)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, settlementserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find settlement: %w", err)
	}

	return &settlement, nil
}

func (r *mongoSettlementRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Settlement, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "period_start", Value: -1}, {Key: "partner_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer cursor.Close(ctx)

	var settlements []*model.Settlement
	if err := cursor.All(ctx, &settlements); err != nil {
		return nil, fmt.Errorf("failed to decode settlements: %w", err)
	}
	return settlements, nil
}

func (r *mongoSettlementRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count settlements: %w", err)
	}
	return count, nil
}

func (r *mongoSettlementRepository) UpdateStatusIf(ctx context.Context, id string, fromStatuses []string, patch StatusPatch) (*model.Settlement, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", settlementserrors.ErrInvalidID, id)
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}
	if patch.TransferInfo != nil {
		set["transfer_info"] = patch.TransferInfo
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": fromStatuses},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Settlement
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, settlementserrors.ErrStateChanged
		}
		return nil, fmt.Errorf("failed to update settlement status: %w", err)
	}

	return &updated, nil
}
