// Package validation wraps go-playground/validator with English messages and
// the GitHub-specific tags used by search descriptors and configuration.
//
// Field names in messages come from the mapstructure tag, falling back to the
// json tag, so errors refer to the names users actually type:
//
//	v := validation.New()
//	if err := v.Struct(cfg); err != nil {
//	    // INVALID_INPUT: num_results must be 1 or greater
//	}
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/matzehuels/reposcout/pkg/errors"
)

// Validator validates structs and reports translated, coded errors.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
	defaultErr  error
)

// Default returns a process-wide Validator. It panics if the built-in
// translations cannot be registered, which only happens on programmer error.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultV, defaultErr = New()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultV
}

// New builds a Validator with English translations and the custom tags
// "language" and "topic".
func New() (*Validator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	custom := []struct {
		tag string
		fn  validator.Func
		msg string
	}{
		{"language", isLanguage, "{0} must be a GitHub language name"},
		{"topic", isTopic, "{0} must be a GitHub topic (lowercase letters, digits and hyphens)"},
	}
	for _, c := range custom {
		if err := validate.RegisterValidation(c.tag, c.fn); err != nil {
			return nil, fmt.Errorf("failed to register %s validation: %w", c.tag, err)
		}
		tag, msg := c.tag, c.msg
		if err := validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		}); err != nil {
			return nil, fmt.Errorf("failed to register %s translation: %w", tag, err)
		}
	}

	return &Validator{validate: validate, translator: trans}, nil
}

// Struct validates s. Failures are returned as a single INVALID_INPUT error
// whose message joins every translated field error.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "validation failed")
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, e.Translate(v.translator))
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s", strings.Join(msgs, ", "))
}

func isLanguage(fl validator.FieldLevel) bool {
	return errors.ValidateLanguage(fl.Field().String()) == nil
}

func isTopic(fl validator.FieldLevel) bool {
	return errors.ValidateTopic(fl.Field().String()) == nil
}
