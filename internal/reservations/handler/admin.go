package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"examseat/internal/reservations/repository"
	"examseat/internal/reservations/service"
	"examseat/pkg/config"
	apperrors "examseat/pkg/errors"
	httputil "examseat/pkg/http"
	"examseat/pkg/logger"
	"examseat/pkg/middleware"
)

// AdminHandler exposes the settlement operations and the cross-user listing.
// Every route requires the admin role on the caller's token.
type AdminHandler struct {
	bookings   service.BookingService
	settlement service.SettlementService
	log        *logger.Logger
}

func NewAdminHandler(bookings service.BookingService, settlement service.SettlementService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		bookings:   bookings,
		settlement: settlement,
		log:        log,
	}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.requireAdmin(w, r, "List") {
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	groups, err := h.bookings.ListAll(r.Context(), filter)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, groups); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

func (h *AdminHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.requireAdmin(w, r, "Confirm") {
		return
	}

	groupID, err := parseGroupID(ps)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	group, err := h.settlement.ConfirmGroup(r.Context(), groupID)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteSuccess(w, group); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "error", err)
	}
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.requireAdmin(w, r, "Delete") {
		return
	}

	groupID, err := parseGroupID(ps)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.settlement.DeleteConfirmedGroup(r.Context(), groupID); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/admin/reservations", h.List)
	router.POST("/api/v1/admin/reservations/confirm/:group_id", h.Confirm)
	router.DELETE("/api/v1/admin/reservations/group/:group_id", h.Delete)
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request, handlerName string) bool {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, handlerName, apperrors.Unauthorized("Missing caller identity"))
		return false
	}
	if !identity.IsAdmin() {
		h.writeError(w, handlerName, apperrors.Forbidden("Admin role required"))
		return false
	}
	return true
}

func (h *AdminHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func parseListFilter(r *http.Request) (repository.Filter, error) {
	query := r.URL.Query()
	filter := repository.Filter{Now: time.Now()}

	if raw := query.Get("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid user_id parameter: %s", raw))
		}
		filter.OwnerID = userID
	}

	if raw := query.Get("group_id"); raw != "" {
		groupID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || groupID <= 0 {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid group_id parameter: %s", raw))
		}
		filter.GroupID = groupID
	}

	if raw := query.Get("from_date"); raw != "" {
		fromDate, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid from_date parameter: %s", raw))
		}
		filter.FromDate = &fromDate
	}

	if raw := query.Get("to_date"); raw != "" {
		toDate, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid to_date parameter: %s", raw))
		}
		filter.ToDate = &toDate
	}

	if raw := query.Get("confirmed"); raw != "" {
		confirmed, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid confirmed parameter: %s", raw))
		}
		filter.Confirmed = &confirmed
	}

	if raw := query.Get("past"); raw != "" {
		past, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid past parameter: %s", raw))
		}
		filter.Past = &past
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid limit parameter: %s", raw))
		}
		filter.Limit = config.NormalizePaginationLimit(limit)
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, apperrors.InvalidInput(fmt.Sprintf("invalid offset parameter: %s", raw))
		}
		filter.Offset = config.NormalizeOffset(offset)
	}

	return filter, nil
}
