package model

import (
	"time"
)

// Reservation is one calendar-day, one-hour-range request unit. Rows sharing
// a GroupID form one multi-day booking and are created, confirmed and deleted
// together.
type Reservation struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	GroupID   int64     `json:"group_id" bson:"group_id" validate:"required,min=1"`
	OwnerID   int64     `json:"owner_id" bson:"owner_id" validate:"required,min=1"`
	Date      time.Time `json:"date" bson:"date" validate:"required"`
	StartHour int       `json:"start_hour" bson:"start_hour" validate:"min=0,max=23"`
	EndHour   int       `json:"end_hour" bson:"end_hour" validate:"required,min=1,max=24,gtfield=StartHour"`
	Count     int       `json:"reserved_count" bson:"reserved_count" validate:"required,min=1"`
	Confirmed bool      `json:"confirmed" bson:"confirmed"`
	LedgerID  string    `json:"ledger_id,omitempty" bson:"ledger_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Slot returns the capacity key this reservation settles against.
func (r *Reservation) Slot() Slot {
	return Slot{Date: r.Date, StartHour: r.StartHour, EndHour: r.EndHour}
}

// StartedBefore reports whether the reservation's start instant is strictly
// before t. Settlement refuses groups containing such rows.
func (r *Reservation) StartedBefore(t time.Time) bool {
	return r.Slot().Start().Before(t)
}

// BookingRequest is the caller-facing shape of a multi-day booking: a date
// range with an hour boundary on each end, and a headcount that applies to
// every expanded day.
type BookingRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	StartHour int       `json:"start_hour" validate:"min=0,max=23"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	EndHour   int       `json:"end_hour" validate:"required,min=1,max=24"`
	Count     int       `json:"reserved_count" validate:"required,min=1"`
}
