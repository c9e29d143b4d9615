// Package validation checks user input with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxMessageBytes bounds the size of one chat message
const MaxMessageBytes = 4096

// Error represents a validation failure of one field
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	_ = validate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxMessageBytes
	})
}

// Struct validates v by its `validate` tags and returns the first failure as an Error
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return Error{Field: fe.Field(), Message: message(fe.Field(), fe.Tag(), fe.Param())}
	}
	return err
}

func field(name, value, tags string) error {
	err := validate.Var(value, tags)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return Error{Field: name, Message: message(name, fieldErrs[0].Tag(), fieldErrs[0].Param())}
	}
	return err
}

func message(name, tag, param string) string {
	switch tag {
	case "required", "nonblank":
		return name + " is required"
	case "email":
		return "invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, param)
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %d bytes", name, MaxMessageBytes)
	case "uuid":
		return name + " must be a valid id"
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, tag)
	}
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	return field("email", strings.TrimSpace(email), "required,email")
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	return field("password", password, "required,min=8,max=72")
}

// ValidateName checks a username or family name
func ValidateName(name string) error {
	return field("name", strings.TrimSpace(name), "required,min=2,max=50")
}

// ValidateMessage checks the text of a chat message
func ValidateMessage(text string) error {
	return field("message", text, "nonblank,maxbytes")
}
