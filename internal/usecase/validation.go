package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"ReviewQueue/internal/domain"
)

// Validator wraps the go-playground validator with the queue rules.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a validator with the custom queue rules registered.
func NewValidator() *Validator {
	validate := validator.New()
	registerQueueValidators(validate)

	// Report JSON field names in messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// Validate checks a struct and returns a *ValidationError on failure.
func (v *Validator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return NewValidationError(errs)
	}
	return err
}

// ValidationError carries per-field messages for the reviewer.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, ", "))
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Errors: map[string]string{field: message}}
}

// NewValidationError maps validator failures to reviewer-facing messages.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	out := make(map[string]string, len(errs))
	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "gt":
			out[field] = fmt.Sprintf("%s must be greater than %s", field, err.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters long", field, err.Param())
		case tagQueueType:
			out[field] = fmt.Sprintf("%s must be a known queue type", field)
		case tagDecision:
			out[field] = fmt.Sprintf("%s must be a decision code between 0 and 4", field)
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return &ValidationError{Errors: out}
}

const (
	tagQueueType = "queuetype"
	tagDecision  = "decision"
)

func registerQueueValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation(tagQueueType, func(fl validator.FieldLevel) bool {
		_, err := domain.ParseQueueType(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation(tagDecision, func(fl validator.FieldLevel) bool {
		code := fl.Field().Int()
		return code >= int64(domain.DecisionNone) && code <= int64(domain.DecisionApprove)
	})
}
