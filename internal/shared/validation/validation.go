// Package validation wraps go-playground/validator and renders field errors as
// human sentences ("Title can't be blank"), one per failed rule.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error carries every failed rule of one input. It maps to a 422.
type Error struct {
	Messages []string
}

// NewError builds an Error from ready-made messages.
func NewError(messages ...string) *Error {
	return &Error{Messages: messages}
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Validator is safe for concurrent use; validator.Validate caches struct metadata.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that names fields by their `label` tag, falling back to the Go field name.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		return f.Name
	})
	return &Validator{v: v}
}

// Struct validates s. It returns *Error for rule failures and a plain error for misuse.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, Message(fe))
		}
		return &Error{Messages: msgs}
	}
	return err
}

// Message renders one field error.
func Message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " can't be blank"
	case "min":
		return fmt.Sprintf("%s is too short (minimum is %s characters)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s is too long (maximum is %s characters)", field, fe.Param())
	case "oneof":
		return field + " is not included in the list"
	default:
		return field + " is invalid"
	}
}

// Merge joins several validation results into one. nil inputs are skipped.
func Merge(errs ...*Error) *Error {
	var msgs []string
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Messages...)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return &Error{Messages: msgs}
}
