package usecase

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"

	"github.com/homelistingai/leadflow/internal/entity"
)

const clockLayout = "15:04"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("emailfmt", func(fl validator.FieldLevel) bool {
		return validEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(entity.DateLayout, strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(clockLayout, strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
	return v
}

// validEmail requires a dotted domain on top of checkmail's format check:
// "jane@example" is rejected.
func validEmail(raw string) bool {
	email := strings.TrimSpace(raw)
	if checkmail.ValidateFormat(email) != nil {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for i := 1; i < len(domain)-1; i++ {
		if domain[i] == '.' {
			return true
		}
	}
	return false
}

// validateInput reports the first failing field as a *ValidationError.
func validateInput(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "input", Message: err.Error()}
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "notblank", "required":
		return &ValidationError{Field: field, Message: "is required"}
	case "emailfmt":
		return &ValidationError{Field: field, Message: "must be a valid email"}
	case "calendardate":
		return &ValidationError{Field: field, Message: "must be a valid date (YYYY-MM-DD)"}
	case "clocktime":
		return &ValidationError{Field: field, Message: "must be a valid time (HH:MM)"}
	case "max":
		return &ValidationError{Field: field, Message: "must be at most " + fe.Param() + " characters"}
	case "min":
		return &ValidationError{Field: field, Message: "must have at least " + fe.Param() + " item(s)"}
	case "gt":
		return &ValidationError{Field: field, Message: "must be positive"}
	case "oneof":
		return &ValidationError{Field: field, Message: "must be one of: " + fe.Param()}
	case "url":
		return &ValidationError{Field: field, Message: "must be a valid URL"}
	default:
		return &ValidationError{Field: field, Message: "is invalid"}
	}
}

// fieldPath drops the struct name: "AddLeadInput.email" -> "email".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func parseLeadStatus(raw string) (entity.LeadStatus, error) {
	status, err := entity.ParseLeadStatus(raw)
	if err != nil {
		return "", &ValidationError{Field: "status", Message: "must be one of New, Qualified, Contacted, Showing, Lost"}
	}
	return status, nil
}
