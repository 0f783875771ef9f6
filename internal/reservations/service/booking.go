package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	reservationerrors "examseat/internal/reservations/errors"
	"examseat/internal/reservations/repository"
	"examseat/internal/reservations/validator"
	"examseat/pkg/config"
	apperrors "examseat/pkg/errors"
	"examseat/pkg/model"
)

type BookingService interface {
	Create(ctx context.Context, ownerID int64, req *model.BookingRequest) (*model.ReservationGroup, error)
	ListOwn(ctx context.Context, ownerID int64) ([]*model.ReservationGroup, error)
	ListAll(ctx context.Context, filter repository.Filter) ([]*model.ReservationGroup, error)
	Update(ctx context.Context, ownerID, groupID int64, req *model.BookingRequest) (*model.ReservationGroup, error)
	Delete(ctx context.Context, ownerID, groupID int64) error
}

type bookingService struct {
	repo      repository.ReservationRepository
	ledger    repository.LedgerRepository
	validator *validator.ReservationValidator
	events    Events
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.ReservationRepository,
	ledger repository.LedgerRepository,
	validator *validator.ReservationValidator,
	events Events,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		ledger:    ledger,
		validator: validator,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, ownerID int64, req *model.BookingRequest) (*model.ReservationGroup, error) {
	if err := s.validateRequest(ownerID, req); err != nil {
		return nil, err
	}

	groupID, err := s.repo.NextGroupID(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to allocate reservation group", err)
	}

	rows := expandBooking(ownerID, groupID, req)

	if err := s.checkCapacity(ctx, rows); err != nil {
		return nil, err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.CreateMany(sessCtx, rows); err != nil {
			return apperrors.Internal("Failed to create reservations", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation group", "group_id", groupID, "error", err)
		return nil, err
	}

	group := model.GroupReservations(rows)[0]

	s.cfg.Log.Info("Reservation group created",
		"group_id", groupID,
		"owner_id", ownerID,
		"days", len(rows),
		"reserved_count", req.Count,
	)
	s.events.GroupCreated(ctx, group)

	return group, nil
}

func (s *bookingService) ListOwn(ctx context.Context, ownerID int64) ([]*model.ReservationGroup, error) {
	if ownerID <= 0 {
		return nil, apperrors.InvalidInput("Owner ID must be positive")
	}

	rows, err := s.repo.Find(ctx, repository.Filter{OwnerID: ownerID})
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}

	return model.GroupReservations(rows), nil
}

func (s *bookingService) ListAll(ctx context.Context, filter repository.Filter) ([]*model.ReservationGroup, error) {
	if filter.Now.IsZero() {
		filter.Now = s.now()
	}

	rows, err := s.repo.Find(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list reservations", "error", err)
		return nil, apperrors.Internal("Failed to retrieve reservations", err)
	}

	return model.GroupReservations(rows), nil
}

// Update replaces every row of an unconfirmed group with a fresh expansion of
// the new request, keeping the group id. It is all or nothing: the old rows
// are only gone once the new ones are in.
func (s *bookingService) Update(ctx context.Context, ownerID, groupID int64, req *model.BookingRequest) (*model.ReservationGroup, error) {
	if err := s.validateRequest(ownerID, req); err != nil {
		return nil, err
	}

	existing, err := s.loadOwnedGroup(ctx, ownerID, groupID)
	if err != nil {
		return nil, err
	}

	for _, row := range existing {
		if row.Confirmed {
			return nil, apperrors.Conflict("Reservation group has confirmed slots and can no longer be changed")
		}
	}

	if existing[0].Date.Before(earliestAllowedStart(s.now())) {
		return nil, apperrors.TooEarly(fmt.Sprintf(
			"Reservation group starting %s is within the %d-day change window",
			existing[0].Date.Format("2006-01-02"), LeadTimeDays,
		))
	}

	rows := expandBooking(ownerID, groupID, req)

	if err := s.checkCapacity(ctx, rows); err != nil {
		return nil, err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.repo.DeleteByGroup(sessCtx, groupID); err != nil {
			return apperrors.Internal("Failed to replace reservations", err)
		}
		if err := s.repo.CreateMany(sessCtx, rows); err != nil {
			return apperrors.Internal("Failed to replace reservations", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update reservation group", "group_id", groupID, "error", err)
		return nil, err
	}

	group := model.GroupReservations(rows)[0]

	s.cfg.Log.Info("Reservation group updated",
		"group_id", groupID,
		"owner_id", ownerID,
		"days", len(rows),
	)
	s.events.GroupUpdated(ctx, group)

	return group, nil
}

// Delete removes an unconfirmed group owned by the caller. Confirmed groups
// hold ledger capacity and must go through settlement deletion instead.
func (s *bookingService) Delete(ctx context.Context, ownerID, groupID int64) error {
	existing, err := s.loadOwnedGroup(ctx, ownerID, groupID)
	if err != nil {
		return err
	}

	for _, row := range existing {
		if row.Confirmed {
			return apperrors.Conflict("Reservation group has confirmed slots and cannot be deleted by its owner")
		}
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.repo.DeleteByGroup(sessCtx, groupID); err != nil {
			return apperrors.Internal("Failed to delete reservations", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete reservation group", "group_id", groupID, "error", err)
		return err
	}

	s.cfg.Log.Info("Reservation group deleted", "group_id", groupID, "owner_id", ownerID)
	s.events.GroupDeleted(ctx, groupID, ownerID)

	return nil
}

func (s *bookingService) validateRequest(ownerID int64, req *model.BookingRequest) error {
	if ownerID <= 0 {
		return apperrors.InvalidInput("Owner ID must be positive")
	}

	if err := s.validator.ValidateRequest(req); err != nil {
		return apperrors.Validation("Invalid reservation request", map[string]any{"error": err.Error()})
	}

	earliest := earliestAllowedStart(s.now())
	if model.Day(req.StartDate).Before(earliest) {
		return apperrors.TooEarly(fmt.Sprintf(
			"Reservations must start on or after %s (%d days from today)",
			earliest.Format("2006-01-02"), LeadTimeDays,
		))
	}

	return nil
}

func (s *bookingService) loadOwnedGroup(ctx context.Context, ownerID, groupID int64) ([]*model.Reservation, error) {
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

	if rows[0].OwnerID != ownerID {
		return nil, apperrors.Forbidden("Reservation group belongs to another user")
	}

	return rows, nil
}

// checkCapacity is the create-time advisory admission check against confirmed
// totals. The binding check happens again at settlement, under slot locks.
func (s *bookingService) checkCapacity(ctx context.Context, rows []*model.Reservation) error {
	for _, row := range rows {
		slot := row.Slot()
		total, err := s.ledger.TotalForSlot(ctx, slot)
		if err != nil {
			return apperrors.Internal("Failed to check slot capacity", err)
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
	}
	return nil
}
