package review

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

// ErrInvalidRequest is wrapped by ValidationError when a request fails
// structural validation, e.g. a missing learner id.
var ErrInvalidRequest = errors.New("invalid request")

// FieldViolation describes one invalid request field.
type FieldViolation struct {
	Field       string
	Description string
}

// ValidationError is returned for requests rejected before any record is touched.
type ValidationError struct {
	Violations []FieldViolation
	err        error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Description)
	}
	return fmt.Sprintf("%v: %s", e.err, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// IsInvalidArgument reports whether err was caused by the caller's input.
func IsInvalidArgument(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || schedule.IsValidationError(err)
}

func fieldError(field string, err error) *ValidationError {
	return &ValidationError{
		Violations: []FieldViolation{{Field: field, Description: err.Error()}},
		err:        err,
	}
}

// progressFieldError maps an engine validation error to the request field that caused it.
func progressFieldError(err error) error {
	switch {
	case errors.Is(err, schedule.ErrInvalidStatus):
		return fieldError("status", err)
	case errors.Is(err, schedule.ErrInvalidPercentage):
		return fieldError("percentage", err)
	case errors.Is(err, schedule.ErrInvalidStudyTime):
		return fieldError("study_minutes", err)
	case errors.Is(err, schedule.ErrInvalidQuality):
		return fieldError("quality", err)
	}
	return err
}

type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: validate, translator: trans}, nil
}

func (v *requestValidator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate request: %w", err)
	}
	verr := &ValidationError{err: ErrInvalidRequest}
	for _, fe := range validationErrors {
		verr.Violations = append(verr.Violations, FieldViolation{
			Field:       fe.Field(),
			Description: fe.Translate(v.translator),
		})
	}
	return verr
}
