package model

import "time"

// LedgerEntry is the aggregate confirmed headcount for one exact slot. It is
// the source of truth for admission decisions: TotalReserved always equals
// the sum of reserved_count over the confirmed reservations that reference
// this entry. Entries never persist at zero; the settlement engine deletes
// them when the last confirmed reservation is released.
type LedgerEntry struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	Date          time.Time `json:"date" bson:"date"`
	StartHour     int       `json:"start_hour" bson:"start_hour"`
	EndHour       int       `json:"end_hour" bson:"end_hour"`
	TotalReserved int       `json:"total_reserved" bson:"total_reserved"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// Slot returns the capacity key for this entry.
func (e *LedgerEntry) Slot() Slot {
	return Slot{Date: e.Date, StartHour: e.StartHour, EndHour: e.EndHour}
}
