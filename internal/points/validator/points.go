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

type ChargeValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewChargeValidator(log *logger.Logger) *ChargeValidator {
	return &ChargeValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *ChargeValidator) ValidateCharge(req *model.ChargeRequest) error {
	if err := v.validate.Struct(req); err != nil {
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
			case "gt":
				message = fmt.Sprintf("%s must be greater than %s", fieldErr.Field(), fieldErr.Param())
			case "iso4217":
				message = fmt.Sprintf("%s must be an ISO 4217 currency code", fieldErr.Field())
			}

			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldErr.Field(),
				Message: message,
			})
		}
		return validationErrors
	}
	return nil
}
