package model

import "time"

// SlotLock is an advisory lock serializing settlement of a single slot.
// The slot key is the document id, so a second acquirer hits a duplicate-key
// error. ExpiresAt backs a TTL index that reaps locks leaked by a crashed
// settlement.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
