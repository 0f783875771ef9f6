package service

import (
	"testing"
	"time"

	"examseat/pkg/model"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCanAdmit(t *testing.T) {
	tests := []struct {
		name           string
		requested      int
		confirmedTotal int
		want           bool
	}{
		{name: "empty slot", requested: 100, confirmedTotal: 0, want: true},
		{name: "fits under limit", requested: 100, confirmedTotal: 49899, want: true},
		{name: "lands exactly on limit", requested: 100, confirmedTotal: 49900, want: true},
		{name: "one seat over limit", requested: 101, confirmedTotal: 49900, want: false},
		{name: "slot already full", requested: 1, confirmedTotal: 50000, want: false},
		{name: "single request at full capacity", requested: 50000, confirmedTotal: 0, want: true},
		{name: "zero requested", requested: 0, confirmedTotal: 0, want: false},
		{name: "negative requested", requested: -5, confirmedTotal: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAdmit(tt.requested, tt.confirmedTotal); got != tt.want {
				t.Errorf("CanAdmit(%d, %d) = %v, want %v", tt.requested, tt.confirmedTotal, got, tt.want)
			}
		})
	}
}

func TestExpandBooking(t *testing.T) {
	tests := []struct {
		name    string
		request model.BookingRequest
		want    []model.Slot
	}{
		{
			name: "three day range",
			request: model.BookingRequest{
				StartDate: day("2030-01-01"), StartHour: 10,
				EndDate: day("2030-01-03"), EndHour: 12,
				Count: 50,
			},
			want: []model.Slot{
				{Date: day("2030-01-01"), StartHour: 10, EndHour: 24},
				{Date: day("2030-01-02"), StartHour: 0, EndHour: 24},
				{Date: day("2030-01-03"), StartHour: 0, EndHour: 12},
			},
		},
		{
			name: "single day",
			request: model.BookingRequest{
				StartDate: day("2030-01-01"), StartHour: 9,
				EndDate: day("2030-01-01"), EndHour: 17,
				Count: 10,
			},
			want: []model.Slot{
				{Date: day("2030-01-01"), StartHour: 9, EndHour: 17},
			},
		},
		{
			name: "two days crossing midnight",
			request: model.BookingRequest{
				StartDate: day("2030-01-01"), StartHour: 22,
				EndDate: day("2030-01-02"), EndHour: 2,
				Count: 10,
			},
			want: []model.Slot{
				{Date: day("2030-01-01"), StartHour: 22, EndHour: 24},
				{Date: day("2030-01-02"), StartHour: 0, EndHour: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := expandBooking(7, 42, &tt.request)

			if len(rows) != len(tt.want) {
				t.Fatalf("expandBooking() produced %d rows, want %d", len(rows), len(tt.want))
			}

			for i, row := range rows {
				if row.Slot() != tt.want[i] {
					t.Errorf("row %d slot = %+v, want %+v", i, row.Slot(), tt.want[i])
				}
				if row.GroupID != 42 {
					t.Errorf("row %d group_id = %d, want 42", i, row.GroupID)
				}
				if row.OwnerID != 7 {
					t.Errorf("row %d owner_id = %d, want 7", i, row.OwnerID)
				}
				if row.Count != tt.request.Count {
					t.Errorf("row %d count = %d, want %d", i, row.Count, tt.request.Count)
				}
				if row.Confirmed {
					t.Errorf("row %d created confirmed", i)
				}
			}
		})
	}
}

func TestEarliestAllowedStart(t *testing.T) {
	now := time.Date(2030, 1, 10, 15, 30, 0, 0, time.UTC)

	got := earliestAllowedStart(now)
	want := day("2030-01-13")

	if !got.Equal(want) {
		t.Errorf("earliestAllowedStart(%v) = %v, want %v", now, got, want)
	}
}
