package service

import (
	"context"
	"errors"
	"testing"
	"time"

	reservationerrors "examseat/internal/reservations/errors"
	"examseat/internal/reservations/validator"
	apperrors "examseat/pkg/errors"
	"examseat/pkg/model"
)

func newTestBookingService(repo *mockReservationRepo, ledger *mockLedgerRepo, now time.Time) *bookingService {
	cfg := testConfig()
	return &bookingService{
		repo:      repo,
		ledger:    ledger,
		validator: validator.NewReservationValidator(cfg.Log),
		events:    NoopEvents{},
		cfg:       cfg,
		now:       func() time.Time { return now },
	}
}

func appErrorCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestCreate_ExpandsAndPersistsGroup(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	var created []*model.Reservation
	repo := &mockReservationRepo{
		nextGroupIDFunc: func(ctx context.Context) (int64, error) { return 42, nil },
		createManyFunc: func(ctx context.Context, rows []*model.Reservation) error {
			created = rows
			return nil
		},
	}
	svc := newTestBookingService(repo, &mockLedgerRepo{}, now)

	group, err := svc.Create(context.Background(), 7, &model.BookingRequest{
		StartDate: day("2030-01-10"), StartHour: 10,
		EndDate: day("2030-01-12"), EndHour: 12,
		Count: 500,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(created) != 3 {
		t.Fatalf("expected 3 persisted rows, got %d", len(created))
	}
	if group.GroupID != 42 {
		t.Errorf("group id = %d, want 42", group.GroupID)
	}
	if group.StartDate != "2030-01-10" || group.EndDate != "2030-01-12" {
		t.Errorf("group span = %s..%s, want 2030-01-10..2030-01-12", group.StartDate, group.EndDate)
	}
	if group.StartHour != 10 || group.EndHour != 12 {
		t.Errorf("group hours = %d..%d, want 10..12", group.StartHour, group.EndHour)
	}
	if group.Confirmed {
		t.Error("freshly created group reported as confirmed")
	}
}

func TestCreate_RejectsShortLeadTime(t *testing.T) {
	now := time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)

	createCalled := false
	repo := &mockReservationRepo{
		createManyFunc: func(ctx context.Context, rows []*model.Reservation) error {
			createCalled = true
			return nil
		},
	}
	svc := newTestBookingService(repo, &mockLedgerRepo{}, now)

	tests := []struct {
		name      string
		startDate string
		wantCode  string
	}{
		{name: "two days out", startDate: "2030-01-12", wantCode: apperrors.CodeTooEarly},
		{name: "today", startDate: "2030-01-10", wantCode: apperrors.CodeTooEarly},
		{name: "in the past", startDate: "2030-01-05", wantCode: apperrors.CodeTooEarly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 7, &model.BookingRequest{
				StartDate: day(tt.startDate), StartHour: 9,
				EndDate: day("2030-02-01"), EndHour: 17,
				Count: 10,
			})
			if err == nil {
				t.Fatal("Create() succeeded, want lead-time rejection")
			}
			if code := appErrorCode(t, err); code != tt.wantCode {
				t.Errorf("error code = %s, want %s", code, tt.wantCode)
			}
		})
	}

	if createCalled {
		t.Error("rows were persisted despite lead-time rejection")
	}

	// Exactly three days out is allowed.
	_, err := svc.Create(context.Background(), 7, &model.BookingRequest{
		StartDate: day("2030-01-13"), StartHour: 9,
		EndDate: day("2030-01-13"), EndHour: 17,
		Count: 10,
	})
	if err != nil {
		t.Errorf("Create() at exactly the lead-time boundary failed: %v", err)
	}
}

func TestCreate_AdvisoryCapacityCheck(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		confirmed int
		count     int
		wantErr   bool
	}{
		{name: "lands exactly on limit", confirmed: 49900, count: 100, wantErr: false},
		{name: "one over limit", confirmed: 49900, count: 101, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			createCalled := false
			repo := &mockReservationRepo{
				createManyFunc: func(ctx context.Context, rows []*model.Reservation) error {
					createCalled = true
					return nil
				},
			}
			ledger := &mockLedgerRepo{
				totalForSlotFunc: func(ctx context.Context, slot model.Slot) (int, error) {
					return tt.confirmed, nil
				},
			}
			svc := newTestBookingService(repo, ledger, now)

			_, err := svc.Create(context.Background(), 7, &model.BookingRequest{
				StartDate: day("2030-01-10"), StartHour: 9,
				EndDate: day("2030-01-10"), EndHour: 17,
				Count: tt.count,
			})

			if tt.wantErr {
				if err == nil {
					t.Fatal("Create() succeeded, want capacity rejection")
				}
				if code := appErrorCode(t, err); code != apperrors.CodeCapacity {
					t.Errorf("error code = %s, want %s", code, apperrors.CodeCapacity)
				}
				if createCalled {
					t.Error("rows were persisted despite capacity rejection")
				}
			} else if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
		})
	}
}

func TestUpdate_ReplacesRowsPreservingGroupID(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	existing := expandBooking(7, 42, &model.BookingRequest{
		StartDate: day("2030-01-10"), StartHour: 9,
		EndDate: day("2030-01-11"), EndHour: 17,
		Count: 100,
	})

	var deletedGroup int64
	var created []*model.Reservation
	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return existing, nil
		},
		deleteByGroupFunc: func(ctx context.Context, groupID int64) (int64, error) {
			deletedGroup = groupID
			return int64(len(existing)), nil
		},
		createManyFunc: func(ctx context.Context, rows []*model.Reservation) error {
			created = rows
			return nil
		},
	}
	svc := newTestBookingService(repo, &mockLedgerRepo{}, now)

	group, err := svc.Update(context.Background(), 7, 42, &model.BookingRequest{
		StartDate: day("2030-01-20"), StartHour: 8,
		EndDate: day("2030-01-22"), EndHour: 16,
		Count: 250,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if deletedGroup != 42 {
		t.Errorf("deleted group = %d, want 42", deletedGroup)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 replacement rows, got %d", len(created))
	}
	for i, row := range created {
		if row.GroupID != 42 {
			t.Errorf("row %d group_id = %d, want 42", i, row.GroupID)
		}
	}
	if group.Count != 250 {
		t.Errorf("group count = %d, want 250", group.Count)
	}
}

func TestUpdate_Rejections(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	validReq := &model.BookingRequest{
		StartDate: day("2030-01-20"), StartHour: 8,
		EndDate: day("2030-01-21"), EndHour: 16,
		Count: 10,
	}

	tests := []struct {
		name     string
		ownerID  int64
		existing func() []*model.Reservation
		findErr  error
		wantCode string
	}{
		{
			name:     "group not found",
			ownerID:  7,
			findErr:  reservationerrors.ErrNotFound,
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:    "not the owner",
			ownerID: 8,
			existing: func() []*model.Reservation {
				return expandBooking(7, 42, validReq)
			},
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:    "group has confirmed rows",
			ownerID: 7,
			existing: func() []*model.Reservation {
				rows := expandBooking(7, 42, validReq)
				rows[1].Confirmed = true
				return rows
			},
			wantCode: apperrors.CodeConflict,
		},
		{
			name:    "existing group starts too soon to change",
			ownerID: 7,
			existing: func() []*model.Reservation {
				return expandBooking(7, 42, &model.BookingRequest{
					StartDate: day("2030-01-02"), StartHour: 8,
					EndDate: day("2030-01-02"), EndHour: 16,
					Count: 10,
				})
			},
			wantCode: apperrors.CodeTooEarly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockReservationRepo{
				findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
					if tt.findErr != nil {
						return nil, tt.findErr
					}
					return tt.existing(), nil
				},
				createManyFunc: func(ctx context.Context, rows []*model.Reservation) error {
					t.Error("rows were persisted despite rejection")
					return nil
				},
			}
			svc := newTestBookingService(repo, &mockLedgerRepo{}, now)

			_, err := svc.Update(context.Background(), tt.ownerID, 42, validReq)
			if err == nil {
				t.Fatal("Update() succeeded, want rejection")
			}
			if code := appErrorCode(t, err); code != tt.wantCode {
				t.Errorf("error code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestDelete_OwnGroup(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	rows := expandBooking(7, 42, &model.BookingRequest{
		StartDate: day("2030-01-10"), StartHour: 9,
		EndDate: day("2030-01-11"), EndHour: 17,
		Count: 100,
	})

	t.Run("unconfirmed group is deleted", func(t *testing.T) {
		var deleted int64
		repo := &mockReservationRepo{
			findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
				return rows, nil
			},
			deleteByGroupFunc: func(ctx context.Context, groupID int64) (int64, error) {
				deleted = groupID
				return int64(len(rows)), nil
			},
		}
		svc := newTestBookingService(repo, &mockLedgerRepo{}, now)

		if err := svc.Delete(context.Background(), 7, 42); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if deleted != 42 {
			t.Errorf("deleted group = %d, want 42", deleted)
		}
	})

	t.Run("confirmed group is refused", func(t *testing.T) {
		confirmed := expandBooking(7, 42, &model.BookingRequest{
			StartDate: day("2030-01-10"), StartHour: 9,
			EndDate: day("2030-01-11"), EndHour: 17,
			Count: 100,
		})
		for _, row := range confirmed {
			row.Confirmed = true
		}

		repo := &mockReservationRepo{
			findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
				return confirmed, nil
			},
			deleteByGroupFunc: func(ctx context.Context, groupID int64) (int64, error) {
				t.Error("confirmed group was deleted")
				return 0, nil
			},
		}
		svc := newTestBookingService(repo, &mockLedgerRepo{}, now)

		err := svc.Delete(context.Background(), 7, 42)
		if err == nil {
			t.Fatal("Delete() succeeded on a confirmed group")
		}
		if code := appErrorCode(t, err); code != apperrors.CodeConflict {
			t.Errorf("error code = %s, want %s", code, apperrors.CodeConflict)
		}
	})
}
