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
	"examseat/pkg/model"
)

const LedgerCollectionName = "Slot_ledger"

// LedgerRepository maintains the per-slot confirmed totals. Credit and Debit
// must run inside the settlement transaction so the ledger never drifts from
// the confirmed reservation rows.
type LedgerRepository interface {
	TotalForSlot(ctx context.Context, slot model.Slot) (int, error)
	FindBySlot(ctx context.Context, slot model.Slot) (*model.LedgerEntry, error)
	Credit(ctx context.Context, slot model.Slot, count int) (*model.LedgerEntry, error)
	Debit(ctx context.Context, id string, count int) error
}

type mongoLedgerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLedgerRepository(cfg *config.Config) LedgerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLedgerRepository{
		cfg:        cfg,
		collection: db.Collection(LedgerCollectionName),
	}
}

func (r *mongoLedgerRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func slotFilter(slot model.Slot) bson.M {
	return bson.M{
		"date":       model.Day(slot.Date),
		"start_hour": slot.StartHour,
		"end_hour":   slot.EndHour,
	}
}

// TotalForSlot returns the confirmed headcount for an exact slot. A missing
// entry means zero.
func (r *mongoLedgerRepository) TotalForSlot(ctx context.Context, slot model.Slot) (int, error) {
	entry, err := r.FindBySlot(ctx, slot)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return entry.TotalReserved, nil
}

func (r *mongoLedgerRepository) FindBySlot(ctx context.Context, slot model.Slot) (*model.LedgerEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var entry model.LedgerEntry
	err := r.collection.FindOne(ctx, slotFilter(slot)).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find ledger entry for slot %s: %w", slot.Key(), err)
	}

	return &entry, nil
}

// Credit adds count to the slot's total, creating the entry if absent, and
// returns the updated entry.
func (r *mongoLedgerRepository) Credit(ctx context.Context, slot model.Slot, count int) (*model.LedgerEntry, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"total_reserved": count},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
		"$setOnInsert": bson.M{
			"date":       model.Day(slot.Date),
			"start_hour": slot.StartHour,
			"end_hour":   slot.EndHour,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var entry model.LedgerEntry
	err := r.collection.FindOneAndUpdate(ctx, slotFilter(slot), update, opts).Decode(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to credit ledger for slot %s: %w", slot.Key(), err)
	}

	return &entry, nil
}

// Debit subtracts count from the entry and deletes it once the total reaches
// zero, keeping the "no zero entries" invariant.
func (r *mongoLedgerRepository) Debit(ctx context.Context, id string, count int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid ledger id %s: %w", id, err)
	}

	update := bson.M{
		"$inc": bson.M{"total_reserved": -count},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var entry model.LedgerEntry
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return reservationerrors.ErrNotFound
		}
		return fmt.Errorf("failed to debit ledger entry %s: %w", id, err)
	}

	if entry.TotalReserved <= 0 {
		if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID}); err != nil {
			return fmt.Errorf("failed to remove drained ledger entry %s: %w", id, err)
		}
	}

	return nil
}
