package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// First returns the message of the first failure, used as the flash notice
func (ve ValidationErrors) First() string {
	if len(ve) == 0 {
		return ""
	}
	return ve[0].Message
}

// Validator wraps go-playground validator with the service's custom rules
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			name = strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	bv := newBusinessValidator(validate)
	return &Validator{validate: validate, business: bv}
}

// Validate runs struct validation and returns nil when the value is valid
func (v *Validator) Validate(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return ToValidationErrors(err)
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// ToValidationErrors converts validator errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Value:   redact(fe),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func redact(fe validator.FieldError) interface{} {
	if strings.Contains(strings.ToLower(fe.Field()), "password") {
		return nil
	}
	return fe.Value()
}

func messageFor(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "email":
		return "Invalid email address."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s cannot be longer than %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "eqfield":
		return "Passwords must match."
	case "username":
		return fmt.Sprintf("%s must not contain leading or trailing spaces or control characters.", label)
	case "room_name":
		return "Room name cannot be blank."
	case "image_ext":
		return "Only jpg, jpeg and png images are allowed."
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}

func humanize(field string) string {
	if field == "" {
		return "Field"
	}
	s := strings.ReplaceAll(field, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
