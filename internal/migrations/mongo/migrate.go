package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"examseat/internal/migrations/mongo/validators"
)

const (
	DB_NAME = "examseat"
)

var (
	ReservationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "group_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{
			{Key: "date", Value: 1},
			{Key: "start_hour", Value: 1},
			{Key: "end_hour", Value: 1},
		}},
	}

	// One ledger entry per exact slot.
	LedgerIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "date", Value: 1},
				{Key: "start_hour", Value: 1},
				{Key: "end_hour", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	// TTL index reaps locks abandoned by a crashed settlement.
	SlotLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client) error {
	db := client.Database(DB_NAME)
	fmt.Printf("🚀 Running Mongo migrations on database: %s\n", DB_NAME)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Reservations": {
			Indexes:   ReservationsIndexes,
			Validator: validators.ReservationValidator,
		},
		"Slot_ledger": {
			Indexes:   LedgerIndexes,
			Validator: validators.LedgerValidator,
		},
		"Slot_locks": {
			Indexes:   SlotLocksIndexes,
			Validator: validators.SlotLockValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	// The counters collection holds the group id sequence; no validator, it
	// is written only through $inc.
	if err := ensureCollection(ctx, db, "Counters", nil); err != nil {
		return fmt.Errorf("failed to ensure collection Counters: %w", err)
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts = opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else if validator != nil {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
