package service

import (
	"time"

	"examseat/pkg/model"
)

const (
	// CapacityLimit is the maximum confirmed headcount a single slot may hold.
	CapacityLimit = 50000

	// LeadTimeDays is the minimum number of days between today and the first
	// day of a booking.
	LeadTimeDays = 3
)

// CanAdmit decides whether a request for `requested` seats fits into a slot
// that already holds `confirmedTotal` confirmed seats. Pending reservations
// never count; landing exactly on the limit is admitted.
func CanAdmit(requested, confirmedTotal int) bool {
	if requested <= 0 {
		return false
	}
	return confirmedTotal+requested <= CapacityLimit
}

// earliestAllowedStart returns the first day a booking may begin, given now.
func earliestAllowedStart(now time.Time) time.Time {
	return model.Day(now).AddDate(0, 0, LeadTimeDays)
}

// expandBooking walks the request's date range and produces one reservation
// row per calendar day. Days before the last run to midnight; every day after
// the first starts at midnight.
func expandBooking(ownerID, groupID int64, req *model.BookingRequest) []*model.Reservation {
	startDay := model.Day(req.StartDate)
	endDay := model.Day(req.EndDate)

	var rows []*model.Reservation
	currentStart := req.StartHour
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		endHour := 24
		if day.Equal(endDay) {
			endHour = req.EndHour
		}
		rows = append(rows, &model.Reservation{
			GroupID:   groupID,
			OwnerID:   ownerID,
			Date:      day,
			StartHour: currentStart,
			EndHour:   endHour,
			Count:     req.Count,
		})
		currentStart = 0
	}
	return rows
}
