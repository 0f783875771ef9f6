package model

import "sort"

// ReservationGroup is the presentation shape for one multi-day booking: a
// summary of the whole span plus the member rows, ordered by date.
type ReservationGroup struct {
	GroupID      int64          `json:"group_id"`
	OwnerID      int64          `json:"owner_id"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	StartHour    int            `json:"start_hour"`
	EndHour      int            `json:"end_hour"`
	Count        int            `json:"reserved_count"`
	Confirmed    bool           `json:"confirmed"`
	Reservations []*Reservation `json:"reservations"`
}

// GroupReservations folds flat reservation rows into per-group summaries.
// Groups come back ordered by group id, rows within a group by date. The
// summary's hour range spans from the first day's start to the last day's
// end, and Confirmed is true only when every member row is confirmed.
func GroupReservations(rows []*Reservation) []*ReservationGroup {
	byGroup := make(map[int64][]*Reservation)
	for _, r := range rows {
		byGroup[r.GroupID] = append(byGroup[r.GroupID], r)
	}

	ids := make([]int64, 0, len(byGroup))
	for id := range byGroup {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	groups := make([]*ReservationGroup, 0, len(ids))
	for _, id := range ids {
		members := byGroup[id]
		sort.Slice(members, func(i, j int) bool { return members[i].Date.Before(members[j].Date) })

		first, last := members[0], members[len(members)-1]
		g := &ReservationGroup{
			GroupID:      id,
			OwnerID:      first.OwnerID,
			StartDate:    first.Date.Format("2006-01-02"),
			EndDate:      last.Date.Format("2006-01-02"),
			StartHour:    first.StartHour,
			EndHour:      last.EndHour,
			Count:        first.Count,
			Confirmed:    true,
			Reservations: members,
		}
		for _, m := range members {
			if !m.Confirmed {
				g.Confirmed = false
				break
			}
		}
		groups = append(groups, g)
	}
	return groups
}
