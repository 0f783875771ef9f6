package http

import (
	"encoding/json"
	"net/http"

	apperrors "examseat/pkg/errors"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError translates an AppError into its HTTP shape. Non-AppError values
// are hidden behind a generic 500 so internals never leak to callers.
func WriteError(w http.ResponseWriter, err error) error {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		return WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
		})
	}

	return WriteJSON(w, appErr.StatusCode(), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
