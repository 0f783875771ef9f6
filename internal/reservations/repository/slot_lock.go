package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	reservationerrors "examseat/internal/reservations/errors"
	"examseat/pkg/config"
	"examseat/pkg/model"
)

const LockCollectionName = "Slot_locks"

// SlotLockRepository provides advisory locks keyed by slot. Acquire inserts a
// document whose id is the slot key; the unique index on _id makes a second
// acquire fail, serializing writers per slot.
type SlotLockRepository interface {
	Acquire(ctx context.Context, slot model.Slot) error
	Release(ctx context.Context, slot model.Slot) error
}

type mongoSlotLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoSlotLockRepository) Acquire(ctx context.Context, slot model.Slot) error {
	now := time.Now().UTC()
	lock := &model.SlotLock{
		ID:        slot.Key(),
		ExpiresAt: now.Add(r.cfg.SlotLockTTL),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", reservationerrors.ErrSlotLocked, slot.Key())
		}
		return fmt.Errorf("failed to acquire slot lock %s: %w", slot.Key(), err)
	}

	return nil
}

func (r *mongoSlotLockRepository) Release(ctx context.Context, slot model.Slot) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": slot.Key()})
	if err != nil {
		return fmt.Errorf("failed to release slot lock %s: %w", slot.Key(), err)
	}
	return nil
}
