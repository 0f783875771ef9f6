package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	reservationerrors "examseat/internal/reservations/errors"
	"examseat/internal/reservations/repository"
	"examseat/pkg/config"
	apperrors "examseat/pkg/errors"
	"examseat/pkg/model"
)

// SettlementService settles reservation groups against the capacity ledger.
// Confirmation is the only moment a reservation consumes capacity, and
// releasing a confirmed group is the only moment it is given back.
type SettlementService interface {
	ConfirmGroup(ctx context.Context, groupID int64) (*model.ReservationGroup, error)
	DeleteConfirmedGroup(ctx context.Context, groupID int64) error
}

type settlementService struct {
	repo   repository.ReservationRepository
	ledger repository.LedgerRepository
	locks  repository.SlotLockRepository
	events Events
	cfg    *config.Config
	now    func() time.Time
}

func NewSettlementService(
	repo repository.ReservationRepository,
	ledger repository.LedgerRepository,
	locks repository.SlotLockRepository,
	events Events,
	cfg *config.Config,
) SettlementService {
	return &settlementService{
		repo:   repo,
		ledger: ledger,
		locks:  locks,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

// ConfirmGroup re-checks admission for every row of the group under slot
// locks and, if all rows fit, credits the ledger and flips the rows to
// confirmed in one transaction. Two concurrent confirmations competing for
// the same remaining capacity resolve first-settled-wins.
func (s *settlementService) ConfirmGroup(ctx context.Context, groupID int64) (*model.ReservationGroup, error) {
	rows, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if row.Confirmed {
			return nil, apperrors.Conflict(fmt.Sprintf("Reservation group %d is already confirmed", groupID))
		}
	}

	if started := s.startedRows(rows); len(started) > 0 {
		return nil, apperrors.Conflict("Reservation group contains slots that have already started").
			WithDetails(map[string]any{"started_slots": started})
	}

	release, err := s.lockSlots(ctx, rows)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, row := range rows {
			slot := row.Slot()

			total, err := s.ledger.TotalForSlot(sessCtx, slot)
			if err != nil {
				return apperrors.Internal("Failed to read slot capacity", err)
			}
			if !CanAdmit(row.Count, total) {
				return apperrors.CapacityExceeded(
					fmt.Sprintf("Slot %s cannot admit %d more seats", slot.Key(), row.Count),
					map[string]any{
						"slot":           slot.Key(),
						"requested":      row.Count,
						"confirmed":      total,
						"capacity_limit": CapacityLimit,
					},
				)
			}

			entry, err := s.ledger.Credit(sessCtx, slot, row.Count)
			if err != nil {
				return apperrors.Internal("Failed to credit slot ledger", err)
			}

			if err := s.repo.Confirm(sessCtx, row.ID, entry.ID); err != nil {
				return apperrors.Internal("Failed to confirm reservation", err)
			}

			row.Confirmed = true
			row.LedgerID = entry.ID
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to confirm reservation group", "group_id", groupID, "error", err)
		return nil, err
	}

	group := model.GroupReservations(rows)[0]

	s.cfg.Log.Info("Reservation group confirmed",
		"group_id", groupID,
		"owner_id", group.OwnerID,
		"days", len(rows),
		"reserved_count", group.Count,
	)
	s.events.GroupConfirmed(ctx, group)

	return group, nil
}

// DeleteConfirmedGroup returns the group's seats to the ledger and removes
// its rows, atomically. Ledger entries drained to zero disappear.
func (s *settlementService) DeleteConfirmedGroup(ctx context.Context, groupID int64) error {
	rows, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}

	confirmed := make([]*model.Reservation, 0, len(rows))
	for _, row := range rows {
		if row.Confirmed {
			confirmed = append(confirmed, row)
		}
	}
	if len(confirmed) == 0 {
		return apperrors.Conflict(fmt.Sprintf("Reservation group %d has no confirmed slots to release", groupID))
	}

	release, err := s.lockSlots(ctx, confirmed)
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, row := range confirmed {
			if err := s.ledger.Debit(sessCtx, row.LedgerID, row.Count); err != nil {
				return apperrors.Internal("Failed to debit slot ledger", err)
			}
		}
		if _, err := s.repo.DeleteByGroup(sessCtx, groupID); err != nil {
			return apperrors.Internal("Failed to delete reservations", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete confirmed reservation group", "group_id", groupID, "error", err)
		return err
	}

	s.cfg.Log.Info("Confirmed reservation group deleted", "group_id", groupID, "days", len(rows))
	s.events.ConfirmedGroupDeleted(ctx, groupID)

	return nil
}

func (s *settlementService) loadGroup(ctx context.Context, groupID int64) ([]*model.Reservation, error) {
	if groupID <= 0 {
		return nil, apperrors.InvalidInput("Group ID must be positive")
	}

	rows, err := s.repo.FindByGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, reservationerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithGroup("Reservation group", groupID)
		}
		return nil, apperrors.Internal("Failed to retrieve reservation group", err)
	}

	return rows, nil
}

func (s *settlementService) startedRows(rows []*model.Reservation) []string {
	now := s.now()
	var started []string
	for _, row := range rows {
		if row.StartedBefore(now) {
			started = append(started, row.Slot().Key())
		}
	}
	return started
}

// lockSlots acquires the advisory lock of every distinct slot in the group,
// in sorted key order so two settlements touching overlapping slot sets never
// deadlock. On conflict, locks taken so far are released and the caller gets
// a retryable conflict error.
func (s *settlementService) lockSlots(ctx context.Context, rows []*model.Reservation) (func(), error) {
	seen := make(map[string]model.Slot)
	for _, row := range rows {
		slot := row.Slot()
		seen[slot.Key()] = slot
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var held []model.Slot
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := s.locks.Release(ctx, held[i]); err != nil {
				s.cfg.Log.Warn("Failed to release slot lock", "slot", held[i].Key(), "error", err)
			}
		}
	}

	for _, key := range keys {
		slot := seen[key]
		if err := s.locks.Acquire(ctx, slot); err != nil {
			release()
			if errors.Is(err, reservationerrors.ErrSlotLocked) {
				return nil, apperrors.Conflict(fmt.Sprintf("Slot %s is being settled by another request, retry shortly", key))
			}
			return nil, apperrors.Internal("Failed to acquire slot lock", err)
		}
		held = append(held, slot)
	}

	return release, nil
}
