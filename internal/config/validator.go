package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// customRule is a validation tag specific to this configuration together
// with its English error text.
type customRule struct {
	tag     string
	message string
	check   validator.Func
}

var customRules = []customRule{
	{
		tag:     "readable_file",
		message: "{0} must name a readable file",
		check:   isReadableFile,
	},
}

// newValidator returns a validator that reports fields by their config key
// (e.g. server.tls.cert_file) and its English translator.
func newValidator() (*validator.Validate, ut.Translator, error) {
	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator(locale.Locale())

	validate := validator.New()
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("register english translations: %w", err)
	}
	validate.RegisterTagNameFunc(configKey)

	for _, rule := range customRules {
		if err := registerRule(validate, trans, rule); err != nil {
			return nil, nil, err
		}
	}
	return validate, trans, nil
}

func registerRule(validate *validator.Validate, trans ut.Translator, rule customRule) error {
	if err := validate.RegisterValidation(rule.tag, rule.check); err != nil {
		return fmt.Errorf("register %s rule: %w", rule.tag, err)
	}
	err := validate.RegisterTranslation(rule.tag, trans,
		func(t ut.Translator) error {
			return t.Add(rule.tag, rule.message, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(rule.tag, strings.TrimPrefix(fe.Namespace(), "Config."))
			return msg
		})
	if err != nil {
		return fmt.Errorf("register %s message: %w", rule.tag, err)
	}
	return nil
}

func configKey(field reflect.StructField) string {
	key, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
	if key == "-" {
		return ""
	}
	return key
}

func isReadableFile(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	return err == nil && info.Mode().IsRegular()
}
