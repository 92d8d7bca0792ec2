package validator

import (
	"errors"
	"fmt"
	"strings"

	"bloomly/pkg/logger"
	"bloomly/pkg/model"

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

type TransitionValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTransitionValidator(log *logger.Logger) *TransitionValidator {
	return &TransitionValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *TransitionValidator) ValidateStatusUpdate(update *model.StatusUpdate) error {
	return v.translate(v.validate.Struct(update))
}

func (v *TransitionValidator) ValidateCancellationRequest(req *model.CancellationRequest) error {
	return v.translate(v.validate.Struct(req))
}

func (v *TransitionValidator) ValidateCancellationDecision(decision *model.CancellationDecision) error {
	return v.translate(v.validate.Struct(decision))
}

func (v *TransitionValidator) translate(err error) error {
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var validationErrors ValidationErrors
	for _, fieldErr := range validationErrs {
		message := fieldErr.Error()

		switch fieldErr.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fieldErr.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", fieldErr.Field(), fieldErr.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fieldErr.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldErr.Field(),
			Message: message,
		})
	}

	return validationErrors
}
