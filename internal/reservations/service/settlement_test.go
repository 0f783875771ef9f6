package service

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "examseat/pkg/errors"
	"examseat/pkg/model"
)

func newTestSettlementService(repo *mockReservationRepo, ledger *fakeLedger, locks *fakeLocks, now time.Time) *settlementService {
	return &settlementService{
		repo:   repo,
		ledger: ledger,
		locks:  locks,
		events: NoopEvents{},
		cfg:    testConfig(),
		now:    func() time.Time { return now },
	}
}

func groupRows(ownerID, groupID int64, startDate string, count int) []*model.Reservation {
	rows := expandBooking(ownerID, groupID, &model.BookingRequest{
		StartDate: day(startDate), StartHour: 9,
		EndDate: day(startDate), EndHour: 17,
		Count: count,
	})
	for i, row := range rows {
		row.ID = "507f1f77bcf86cd79943901" + string(rune('0'+i))
	}
	return rows
}

func TestConfirmGroup_CreditsLedgerAndFlipsRows(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := groupRows(7, 42, "2030-01-10", 500)

	ledger := newFakeLedger()
	confirmed := map[string]string{}
	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return rows, nil
		},
		confirmFunc: func(ctx context.Context, id string, ledgerID string) error {
			confirmed[id] = ledgerID
			return nil
		},
	}
	svc := newTestSettlementService(repo, ledger, newFakeLocks(), now)

	group, err := svc.ConfirmGroup(context.Background(), 42)
	if err != nil {
		t.Fatalf("ConfirmGroup() error = %v", err)
	}

	if !group.Confirmed {
		t.Error("group not reported confirmed")
	}
	for _, row := range rows {
		if _, ok := confirmed[row.ID]; !ok {
			t.Errorf("row %s was not confirmed", row.ID)
		}
		total, _ := ledger.TotalForSlot(context.Background(), row.Slot())
		if total != row.Count {
			t.Errorf("ledger total for %s = %d, want %d", row.Slot().Key(), total, row.Count)
		}
	}
}

func TestConfirmGroup_FirstSettledWins(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	groups := map[int64][]*model.Reservation{
		1: groupRows(7, 1, "2030-01-10", 30000),
		2: groupRows(8, 2, "2030-01-10", 30000),
	}

	ledger := newFakeLedger()
	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return groups[groupID], nil
		},
	}
	svc := newTestSettlementService(repo, ledger, newFakeLocks(), now)

	t.Run("sequential", func(t *testing.T) {
		if _, err := svc.ConfirmGroup(context.Background(), 1); err != nil {
			t.Fatalf("first ConfirmGroup() error = %v", err)
		}

		_, err := svc.ConfirmGroup(context.Background(), 2)
		if err == nil {
			t.Fatal("second ConfirmGroup() succeeded, want capacity rejection")
		}
		if code := appErrorCode(t, err); code != apperrors.CodeCapacity {
			t.Errorf("error code = %s, want %s", code, apperrors.CodeCapacity)
		}

		slot := groups[1][0].Slot()
		total, _ := ledger.TotalForSlot(context.Background(), slot)
		if total != 30000 {
			t.Errorf("ledger total = %d, want 30000", total)
		}
	})
}

func TestConfirmGroup_ConcurrentSettlementIsExclusive(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	groups := map[int64][]*model.Reservation{
		1: groupRows(7, 1, "2030-01-10", 30000),
		2: groupRows(8, 2, "2030-01-10", 30000),
	}

	ledger := newFakeLedger()
	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return groups[groupID], nil
		},
	}
	svc := newTestSettlementService(repo, ledger, newFakeLocks(), now)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmGroup(context.Background(), int64(i+1))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("got %d successful settlements, want exactly 1", successes)
	}

	// The loser either hit the slot lock or the capacity ceiling; either way
	// only the winner's seats are on the ledger.
	slot := groups[1][0].Slot()
	total, _ := ledger.TotalForSlot(context.Background(), slot)
	if total != 30000 {
		t.Errorf("ledger total = %d, want 30000", total)
	}
}

func TestConfirmGroup_RejectsStartedRows(t *testing.T) {
	rows := groupRows(7, 42, "2030-01-10", 100)
	now := time.Date(2030, 1, 10, 10, 0, 0, 0, time.UTC)

	ledger := newFakeLedger()
	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return rows, nil
		},
		confirmFunc: func(ctx context.Context, id string, ledgerID string) error {
			t.Error("row confirmed despite started slot")
			return nil
		},
	}
	svc := newTestSettlementService(repo, ledger, newFakeLocks(), now)

	_, err := svc.ConfirmGroup(context.Background(), 42)
	if err == nil {
		t.Fatal("ConfirmGroup() succeeded on a started group")
	}
	if code := appErrorCode(t, err); code != apperrors.CodeConflict {
		t.Errorf("error code = %s, want %s", code, apperrors.CodeConflict)
	}

	appErr := apperrors.AsAppError(err)
	if _, ok := appErr.Details["started_slots"]; !ok {
		t.Error("rejection does not list the started slots")
	}

	total, _ := ledger.TotalForSlot(context.Background(), rows[0].Slot())
	if total != 0 {
		t.Errorf("ledger total = %d, want 0 after rejection", total)
	}
}

func TestConfirmGroup_AlreadyConfirmed(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := groupRows(7, 42, "2030-01-10", 100)
	for _, row := range rows {
		row.Confirmed = true
	}

	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return rows, nil
		},
	}
	svc := newTestSettlementService(repo, newFakeLedger(), newFakeLocks(), now)

	_, err := svc.ConfirmGroup(context.Background(), 42)
	if err == nil {
		t.Fatal("ConfirmGroup() succeeded on an already confirmed group")
	}
	if code := appErrorCode(t, err); code != apperrors.CodeConflict {
		t.Errorf("error code = %s, want %s", code, apperrors.CodeConflict)
	}
}

func TestConfirmGroup_CapacityBoundary(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		preCredit  int
		count      int
		wantErr    bool
		finalTotal int
	}{
		{name: "lands exactly on limit", preCredit: 49900, count: 100, wantErr: false, finalTotal: 50000},
		{name: "one over limit", preCredit: 49900, count: 101, wantErr: true, finalTotal: 49900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := groupRows(7, 42, "2030-01-10", tt.count)
			slot := rows[0].Slot()

			ledger := newFakeLedger()
			if _, err := ledger.Credit(context.Background(), slot, tt.preCredit); err != nil {
				t.Fatal(err)
			}

			repo := &mockReservationRepo{
				findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
					return rows, nil
				},
			}
			svc := newTestSettlementService(repo, ledger, newFakeLocks(), now)

			_, err := svc.ConfirmGroup(context.Background(), 42)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ConfirmGroup() succeeded, want capacity rejection")
				}
				if code := appErrorCode(t, err); code != apperrors.CodeCapacity {
					t.Errorf("error code = %s, want %s", code, apperrors.CodeCapacity)
				}
			} else if err != nil {
				t.Fatalf("ConfirmGroup() error = %v", err)
			}

			total, _ := ledger.TotalForSlot(context.Background(), slot)
			if total != tt.finalTotal {
				t.Errorf("ledger total = %d, want %d", total, tt.finalTotal)
			}
		})
	}
}

func TestConfirmGroup_SlotLockHeld(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := groupRows(7, 42, "2030-01-10", 100)

	ledger := newFakeLedger()
	locks := newFakeLocks()
	if err := locks.Acquire(context.Background(), rows[0].Slot()); err != nil {
		t.Fatal(err)
	}

	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return rows, nil
		},
	}
	svc := newTestSettlementService(repo, ledger, locks, now)

	_, err := svc.ConfirmGroup(context.Background(), 42)
	if err == nil {
		t.Fatal("ConfirmGroup() succeeded while the slot lock was held")
	}
	if code := appErrorCode(t, err); code != apperrors.CodeConflict {
		t.Errorf("error code = %s, want %s", code, apperrors.CodeConflict)
	}

	total, _ := ledger.TotalForSlot(context.Background(), rows[0].Slot())
	if total != 0 {
		t.Errorf("ledger total = %d, want 0", total)
	}
}

func TestDeleteConfirmedGroup_RoundTrip(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := groupRows(7, 42, "2030-01-10", 500)

	ledger := newFakeLedger()
	var deletedGroup int64
	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return rows, nil
		},
		deleteByGroupFunc: func(ctx context.Context, groupID int64) (int64, error) {
			deletedGroup = groupID
			return int64(len(rows)), nil
		},
	}
	svc := newTestSettlementService(repo, ledger, newFakeLocks(), now)

	if _, err := svc.ConfirmGroup(context.Background(), 42); err != nil {
		t.Fatalf("ConfirmGroup() error = %v", err)
	}

	if err := svc.DeleteConfirmedGroup(context.Background(), 42); err != nil {
		t.Fatalf("DeleteConfirmedGroup() error = %v", err)
	}

	if deletedGroup != 42 {
		t.Errorf("deleted group = %d, want 42", deletedGroup)
	}

	// Confirm followed by delete leaves the ledger exactly as it started.
	for _, row := range rows {
		total, _ := ledger.TotalForSlot(context.Background(), row.Slot())
		if total != 0 {
			t.Errorf("ledger total for %s = %d, want 0", row.Slot().Key(), total)
		}
	}
}

func TestDeleteConfirmedGroup_RequiresConfirmedRows(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := groupRows(7, 42, "2030-01-10", 100)

	repo := &mockReservationRepo{
		findByGroupFunc: func(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
			return rows, nil
		},
		deleteByGroupFunc: func(ctx context.Context, groupID int64) (int64, error) {
			t.Error("unconfirmed group was deleted through settlement")
			return 0, nil
		},
	}
	svc := newTestSettlementService(repo, newFakeLedger(), newFakeLocks(), now)

	err := svc.DeleteConfirmedGroup(context.Background(), 42)
	if err == nil {
		t.Fatal("DeleteConfirmedGroup() succeeded on an unconfirmed group")
	}
	if code := appErrorCode(t, err); code != apperrors.CodeConflict {
		t.Errorf("error code = %s, want %s", code, apperrors.CodeConflict)
	}
}
