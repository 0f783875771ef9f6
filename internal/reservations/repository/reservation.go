package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reservationerrors "examseat/internal/reservations/errors"
	"examseat/pkg/config"
	mongotx "examseat/pkg/db/mongo"
	"examseat/pkg/model"
)

const (
	CollectionName         = "Reservations"
	CountersCollectionName = "Counters"

	groupCounterID = "reservation_group_id"
)

// Filter narrows reservation listings. Nil pointer fields are ignored.
type Filter struct {
	OwnerID   int64
	GroupID   int64
	FromDate  *time.Time
	ToDate    *time.Time
	Confirmed *bool
	Past      *bool
	Now       time.Time
	Limit     int
	Offset    int64
}

type ReservationRepository interface {
	CreateMany(ctx context.Context, reservations []*model.Reservation) error
	FindByGroup(ctx context.Context, groupID int64) ([]*model.Reservation, error)
	Find(ctx context.Context, filter Filter) ([]*model.Reservation, error)
	DeleteByGroup(ctx context.Context, groupID int64) (int64, error)
	Confirm(ctx context.Context, id string, ledgerID string) error
	NextGroupID(ctx context.Context) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	counters   *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		counters:   db.Collection(CountersCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it is already a
// transaction session context, which must not be re-wrapped.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// CreateMany inserts all rows of a group in order. Callers run it inside a
// transaction so a partial group never becomes visible.
func (r *mongoReservationRepository) CreateMany(ctx context.Context, reservations []*model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(reservations))
	for _, res := range reservations {
		res.CreatedAt = now
		docs = append(docs, res)
	}

	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to create reservations: %w", err)
	}

	for i, insertedID := range result.InsertedIDs {
		if oid, ok := insertedID.(primitive.ObjectID); ok {
			reservations[i].ID = oid.Hex()
		}
	}
	return nil
}

func (r *mongoReservationRepository) FindByGroup(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation group %d: %w", groupID, err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	if len(reservations) == 0 {
		return nil, reservationerrors.ErrNotFound
	}

	return reservations, nil
}

func (r *mongoReservationRepository) Find(ctx context.Context, filter Filter) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := bson.M{}

	if filter.OwnerID > 0 {
		query["owner_id"] = filter.OwnerID
	}
	if filter.GroupID > 0 {
		query["group_id"] = filter.GroupID
	}
	if filter.Confirmed != nil {
		query["confirmed"] = *filter.Confirmed
	}

	dateRange := bson.M{}
	if filter.FromDate != nil {
		dateRange["$gte"] = model.Day(*filter.FromDate)
	}
	if filter.ToDate != nil {
		dateRange["$lte"] = model.Day(*filter.ToDate)
	}
	if filter.Past != nil {
		cutoff := model.Day(filter.Now)
		if *filter.Past {
			dateRange["$lt"] = cutoff
		} else {
			dateRange["$gte"] = cutoff
		}
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "group_id", Value: 1},
		{Key: "date", Value: 1},
	})
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) DeleteByGroup(ctx context.Context, groupID int64) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete reservation group %d: %w", groupID, err)
	}

	return result.DeletedCount, nil
}

// Confirm flips one reservation row to confirmed and records the ledger entry
// it settled against.
func (r *mongoReservationRepository) Confirm(ctx context.Context, id string, ledgerID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationerrors.ErrInvalidGroupID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"confirmed": true,
			"ledger_id": ledgerID,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to confirm reservation %s: %w", id, err)
	}

	if result.MatchedCount == 0 {
		return reservationerrors.ErrNotFound
	}

	return nil
}

// NextGroupID allocates a group id from an atomically incremented counter
// document, so concurrent creates never collide.
func (r *mongoReservationRepository) NextGroupID(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Sequence int64 `bson:"sequence"`
	}
	err := r.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": groupCounterID},
		bson.M{"$inc": bson.M{"sequence": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate group id: %w", err)
	}

	return counter.Sequence, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// IsDuplicateKeyError reports a unique-index violation, which the lock
// repository treats as "already held".
func IsDuplicateKeyError(err error) bool {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		for _, we := range bulkErr.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}
