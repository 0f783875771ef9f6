package model

import (
	"fmt"
	"time"
)

// Slot is the capacity-accounting key: one calendar day plus an exact hour
// range. Two reservations compete for capacity only when all three parts
// match exactly.
type Slot struct {
	Date      time.Time `json:"date" bson:"date"`
	StartHour int       `json:"start_hour" bson:"start_hour"`
	EndHour   int       `json:"end_hour" bson:"end_hour"`
}

// Key returns a stable string form of the slot, used as the advisory lock id
// and for deterministic lock ordering across a group.
func (s Slot) Key() string {
	return fmt.Sprintf("%s:%02d-%02d", s.Date.Format("2006-01-02"), s.StartHour, s.EndHour)
}

// Start returns the instant the slot begins.
func (s Slot) Start() time.Time {
	return s.Date.Add(time.Duration(s.StartHour) * time.Hour)
}

// Day truncates t to midnight UTC. All reservation dates are stored
// normalized this way so that slot keys compare exactly.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
