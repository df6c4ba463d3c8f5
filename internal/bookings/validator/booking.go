package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hallbook/pkg/logger"
	"hallbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
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

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("hall", validateHall); err != nil {
		log.Fatal("Failed to register 'hall' validator",
			"error", err,
		)
	}
	if err := v.RegisterValidation("clock", validateClock); err != nil {
		log.Fatal("Failed to register 'clock' validator",
			"error", err,
		)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateHall(fl validator.FieldLevel) bool {
	return model.IsKnownHall(fl.Field().String())
}

func validateClock(fl validator.FieldLevel) bool {
	return clockRegex.MatchString(fl.Field().String())
}

// IsClock reports whether s is a 24h HH:MM time.
func IsClock(s string) bool {
	return clockRegex.MatchString(s)
}

func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	// HH:MM compares correctly as a string once the format is checked.
	if req.TimeFrom >= req.TimeTo {
		return ValidationErrors{
			ValidationError{
				Field:   "TimeTo",
				Message: "time_to must be after time_from",
			},
		}
	}

	if r := req.Recurring; r != nil && r.Enabled && r.EndDate != "" && r.EndDate < req.Date {
		return ValidationErrors{
			ValidationError{
				Field:   "EndDate",
				Message: "recurring end_date cannot be before the booking date",
			},
		}
	}

	return nil
}

// ValidateSlot checks the arguments of a conflict check or slot query.
func (v *BookingValidator) ValidateSlot(hall, date, timeFrom, timeTo string) error {
	var errs ValidationErrors
	if !model.IsKnownHall(hall) {
		errs = append(errs, ValidationError{Field: "Hall", Message: fmt.Sprintf("unknown hall %q", hall)})
	}
	if err := v.validate.Var(date, "required,datetime=2006-01-02"); err != nil {
		errs = append(errs, ValidationError{Field: "Date", Message: "date must be in YYYY-MM-DD format"})
	}
	if timeFrom != "" || timeTo != "" {
		if !IsClock(timeFrom) || !IsClock(timeTo) {
			errs = append(errs, ValidationError{Field: "Time", Message: "time_from and time_to must be in HH:MM format"})
		} else if timeFrom >= timeTo {
			errs = append(errs, ValidationError{Field: "TimeTo", Message: "time_to must be after time_from"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		case "clock":
			message = fmt.Sprintf("%s must be a time in HH:MM format", err.Field())
		case "hall":
			message = fmt.Sprintf("%s must be one of the campus halls", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
