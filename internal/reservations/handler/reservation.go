package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"examseat/internal/reservations/service"
	apperrors "examseat/pkg/errors"
	httputil "examseat/pkg/http"
	"examseat/pkg/logger"
	"examseat/pkg/middleware"
	"examseat/pkg/model"
)

const dateLayout = "2006-01-02"

// bookingPayload is the wire shape of a booking request. Dates travel as
// plain calendar days, not timestamps.
type bookingPayload struct {
	StartDate string `json:"start_date"`
	StartHour int    `json:"start_hour"`
	EndDate   string `json:"end_date"`
	EndHour   int    `json:"end_hour"`
	Count     int    `json:"reserved_count"`
}

func (p *bookingPayload) toRequest() (*model.BookingRequest, error) {
	startDate, err := time.Parse(dateLayout, p.StartDate)
	if err != nil {
		return nil, apperrors.InvalidInput("start_date must be formatted as YYYY-MM-DD")
	}
	endDate, err := time.Parse(dateLayout, p.EndDate)
	if err != nil {
		return nil, apperrors.InvalidInput("end_date must be formatted as YYYY-MM-DD")
	}

	return &model.BookingRequest{
		StartDate: startDate,
		StartHour: p.StartHour,
		EndDate:   endDate,
		EndHour:   p.EndHour,
		Count:     p.Count,
	}, nil
}

type ReservationHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewReservationHandler(service service.BookingService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Create", apperrors.Unauthorized("Missing caller identity"))
		return
	}

	var payload bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	req, err := payload.toRequest()
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	group, err := h.service.Create(r.Context(), identity.UserID, req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, group); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "List", apperrors.Unauthorized("Missing caller identity"))
		return
	}

	groups, err := h.service.ListOwn(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, groups); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Update", apperrors.Unauthorized("Missing caller identity"))
		return
	}

	groupID, err := parseGroupID(ps)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var payload bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	req, err := payload.toRequest()
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	group, err := h.service.Update(r.Context(), identity.UserID, groupID, req)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, group); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Delete", apperrors.Unauthorized("Missing caller identity"))
		return
	}

	groupID, err := parseGroupID(ps)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), identity.UserID, groupID); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.List)
	router.PATCH("/api/v1/reservations/group/:group_id", h.Update)
	router.DELETE("/api/v1/reservations/group/:group_id", h.Delete)
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}

func parseGroupID(ps httprouter.Params) (int64, error) {
	raw := ps.ByName("group_id")
	groupID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || groupID <= 0 {
		return 0, apperrors.InvalidInput("group_id must be a positive integer")
	}
	return groupID, nil
}
