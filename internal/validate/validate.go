// Package validate wraps go-playground/validator with the librarian's
// custom rules and English error messages. Field names in errors come
// from json tags so they match what users type on the command line.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

// Validator validates structs against their validate tags.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

var (
	global *Validator
	once   sync.Once
)

// Global returns the shared validator, creating it on first use.
func Global() *Validator {
	once.Do(func() {
		global = New()
	})
	return global
}

// New creates a validator with the custom rules registered.
func New() *Validator {
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		default:
			return name
		}
	})

	locale := en.New()
	v.trans, _ = ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v.validate, v.trans)

	v.register("classification", isClassification, "{0} must be a classification code like 500 or 500.1")
	v.register("choice", isChoiceLetter, "{0} must be one of A, B, C or D")

	return v
}

func (v *Validator) register(tag string, fn validator.Func, message string) {
	_ = v.validate.RegisterValidation(tag, fn)
	_ = v.validate.RegisterTranslation(tag, v.trans,
		func(t ut.Translator) error {
			return t.Add(tag, message, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		},
	)
}

func isClassification(fl validator.FieldLevel) bool {
	return domain.IsValidClassification(fl.Field().String())
}

func isChoiceLetter(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "A", "B", "C", "D":
		return true
	default:
		return false
	}
}

// Struct validates s. A failed validation returns an error wrapping
// domain.ErrInvalidInput whose message lists every failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = fe.Translate(v.trans)
	}
	return &Error{Fields: fieldNames(fieldErrs), Messages: messages}
}

// Var validates a single value against tag.
func (v *Validator) Var(field any, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func fieldNames(errs validator.ValidationErrors) []string {
	names := make([]string, len(errs))
	for i, fe := range errs {
		names[i] = fe.Field()
	}
	return names
}

// Error reports the fields that failed validation.
type Error struct {
	Fields   []string
	Messages []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Unwrap makes errors.Is(err, domain.ErrInvalidInput) hold.
func (e *Error) Unwrap() error {
	return domain.ErrInvalidInput
}

// Struct validates s with the shared validator.
func Struct(s any) error {
	return Global().Struct(s)
}
