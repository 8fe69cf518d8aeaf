package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so that clients can map errors to their own fields.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks all field constraints of the contact. The birthday must not lie after today.
func (in ContactInput) Validate(today time.Time) error {
	fields := validateStruct(in)
	if in.Birthday != nil && in.Birthday.After(DateOf(today).Time) {
		fields = append(fields, apperror.FieldError{
			Field:   "birthday",
			Message: "birthday cannot be in the future",
		})
	}
	if len(fields) > 0 {
		return apperror.ValidationFailed(fields...)
	}
	return nil
}

// Validate checks the registration data.
func (in SignupInput) Validate() error {
	if fields := validateStruct(in); len(fields) > 0 {
		return apperror.ValidationFailed(fields...)
	}
	return nil
}

// Validate checks that both credentials are present.
func (in LoginInput) Validate() error {
	if fields := validateStruct(in); len(fields) > 0 {
		return apperror.ValidationFailed(fields...)
	}
	return nil
}

func validateStruct(s any) []apperror.FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperror.FieldError{{Field: "body", Message: err.Error()}}
	}
	fields := make([]apperror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return fields
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}
