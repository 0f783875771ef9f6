package validator

import (
	"errors"
	"fmt"
	"strings"

	"examseat/pkg/logger"
	"examseat/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	log.Info("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

// ValidateRequest checks the caller-facing booking shape. Lead time and
// capacity are the service's concern; this layer only rejects ranges that can
// never expand into valid slots.
func (v *ReservationValidator) ValidateRequest(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	startDay := model.Day(req.StartDate)
	endDay := model.Day(req.EndDate)

	if endDay.Before(startDay) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndDate",
				Message: "end_date must not be before start_date",
			},
		}
	}

	if startDay.Equal(endDay) && req.EndHour <= req.StartHour {
		return ValidationErrors{
			ValidationError{
				Field:   "EndHour",
				Message: "end_hour must be after start_hour on a single-day booking",
			},
		}
	}

	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
