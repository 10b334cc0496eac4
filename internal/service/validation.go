package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
)

// NewValidator returns a validator with the custom tags used by request DTOs.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// validationError turns validator output into a VALIDATION_ERROR naming the
// offending fields.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required", "notblank":
			parts = append(parts, fmt.Sprintf("%s is required", lowerFirst(fe.Field())))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", lowerFirst(fe.Field()), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", lowerFirst(fe.Field()), fe.Param()))
		case "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email", lowerFirst(fe.Field())))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", lowerFirst(fe.Field())))
		}
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.Join(parts, "; "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
