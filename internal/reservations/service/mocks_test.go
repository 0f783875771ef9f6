package service

import (
	"context"
	"sync"
	"time"

	reservationerrors "examseat/internal/reservations/errors"
	"examseat/internal/reservations/repository"
	"examseat/pkg/config"
	mongotx "examseat/pkg/db/mongo"
	"examseat/pkg/logger"
	"examseat/pkg/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:     "error",
			Format:    logger.JSON,
			AddSource: false,
			Service:   "test",
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		SlotLockTTL:  10 * time.Second,
	}
}

type mockReservationRepo struct {
	createManyFunc    func(ctx context.Context, rows []*model.Reservation) error
	findByGroupFunc   func(ctx context.Context, groupID int64) ([]*model.Reservation, error)
	findFunc          func(ctx context.Context, filter repository.Filter) ([]*model.Reservation, error)
	deleteByGroupFunc func(ctx context.Context, groupID int64) (int64, error)
	confirmFunc       func(ctx context.Context, id string, ledgerID string) error
	nextGroupIDFunc   func(ctx context.Context) (int64, error)
	executeTxFunc     func(ctx context.Context, fn mongotx.TransactionFunc) error
}

func (m *mockReservationRepo) CreateMany(ctx context.Context, rows []*model.Reservation) error {
	if m.createManyFunc != nil {
		return m.createManyFunc(ctx, rows)
	}
	return nil
}

func (m *mockReservationRepo) FindByGroup(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
	if m.findByGroupFunc != nil {
		return m.findByGroupFunc(ctx, groupID)
	}
	return nil, nil
}

func (m *mockReservationRepo) Find(ctx context.Context, filter repository.Filter) ([]*model.Reservation, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockReservationRepo) DeleteByGroup(ctx context.Context, groupID int64) (int64, error) {
	if m.deleteByGroupFunc != nil {
		return m.deleteByGroupFunc(ctx, groupID)
	}
	return 0, nil
}

func (m *mockReservationRepo) Confirm(ctx context.Context, id string, ledgerID string) error {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, id, ledgerID)
	}
	return nil
}

func (m *mockReservationRepo) NextGroupID(ctx context.Context) (int64, error) {
	if m.nextGroupIDFunc != nil {
		return m.nextGroupIDFunc(ctx)
	}
	return 1, nil
}

func (m *mockReservationRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.executeTxFunc != nil {
		return m.executeTxFunc(ctx, fn)
	}
	return fn(nil)
}

type mockLedgerRepo struct {
	totalForSlotFunc func(ctx context.Context, slot model.Slot) (int, error)
	findBySlotFunc   func(ctx context.Context, slot model.Slot) (*model.LedgerEntry, error)
	creditFunc       func(ctx context.Context, slot model.Slot, count int) (*model.LedgerEntry, error)
	debitFunc        func(ctx context.Context, id string, count int) error
}

func (m *mockLedgerRepo) TotalForSlot(ctx context.Context, slot model.Slot) (int, error) {
	if m.totalForSlotFunc != nil {
		return m.totalForSlotFunc(ctx, slot)
	}
	return 0, nil
}

func (m *mockLedgerRepo) FindBySlot(ctx context.Context, slot model.Slot) (*model.LedgerEntry, error) {
	if m.findBySlotFunc != nil {
		return m.findBySlotFunc(ctx, slot)
	}
	return nil, nil
}

func (m *mockLedgerRepo) Credit(ctx context.Context, slot model.Slot, count int) (*model.LedgerEntry, error) {
	if m.creditFunc != nil {
		return m.creditFunc(ctx, slot, count)
	}
	return &model.LedgerEntry{ID: "ledger-1", Date: slot.Date, StartHour: slot.StartHour, EndHour: slot.EndHour, TotalReserved: count}, nil
}

func (m *mockLedgerRepo) Debit(ctx context.Context, id string, count int) error {
	if m.debitFunc != nil {
		return m.debitFunc(ctx, id, count)
	}
	return nil
}

type mockSlotLockRepo struct {
	acquireFunc func(ctx context.Context, slot model.Slot) error
	releaseFunc func(ctx context.Context, slot model.Slot) error
}

func (m *mockSlotLockRepo) Acquire(ctx context.Context, slot model.Slot) error {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, slot)
	}
	return nil
}

func (m *mockSlotLockRepo) Release(ctx context.Context, slot model.Slot) error {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, slot)
	}
	return nil
}

// fakeLedger is a stateful in-memory ledger for settlement tests that need
// totals to move as groups confirm and release.
type fakeLedger struct {
	mu      sync.Mutex
	totals  map[string]int
	entries map[string]model.Slot
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		totals:  make(map[string]int),
		entries: make(map[string]model.Slot),
	}
}

func (f *fakeLedger) TotalForSlot(_ context.Context, slot model.Slot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totals[slot.Key()], nil
}

func (f *fakeLedger) FindBySlot(_ context.Context, slot model.Slot) (*model.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total, ok := f.totals[slot.Key()]
	if !ok {
		return nil, nil
	}
	return &model.LedgerEntry{ID: slot.Key(), TotalReserved: total}, nil
}

func (f *fakeLedger) Credit(_ context.Context, slot model.Slot, count int) (*model.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := slot.Key()
	f.totals[key] += count
	f.entries[key] = slot
	return &model.LedgerEntry{ID: key, Date: slot.Date, StartHour: slot.StartHour, EndHour: slot.EndHour, TotalReserved: f.totals[key]}, nil
}

func (f *fakeLedger) Debit(_ context.Context, id string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totals[id] -= count
	if f.totals[id] <= 0 {
		delete(f.totals, id)
		delete(f.entries, id)
	}
	return nil
}

// fakeLocks serializes settlements per slot the way the unique-index insert
// does in Mongo.
type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (f *fakeLocks) Acquire(_ context.Context, slot model.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[slot.Key()] {
		return reservationerrors.ErrSlotLocked
	}
	f.held[slot.Key()] = true
	return nil
}

func (f *fakeLocks) Release(_ context.Context, slot model.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, slot.Key())
	return nil
}
