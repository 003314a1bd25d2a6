package transport

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/Skotchmaster/learnhub/pkg/apperr"
)

const notBlankTag = "notblank"

var (
	Validate   *validator.Validate
	Translator ut.Translator
)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Report fields by their JSON names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = Validate.RegisterTranslation(notBlankTag, Translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		},
	)
}

// EchoValidator plugs Validate into echo's c.Validate.
type EchoValidator struct{}

func (EchoValidator) Validate(i any) error {
	return ValidateStruct(i)
}

func FieldErrors(verrs validator.ValidationErrors) []apperr.FieldError {
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{Field: fe.Field(), Message: fe.Translate(Translator)})
	}
	return out
}

// ValidateStruct runs the struct tags and reports failures as a validation
// error carrying one entry per field.
func ValidateStruct(i any) error {
	err := Validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("cannot validate request", err)
	}
	return apperr.Validation("Validation failed", FieldErrors(verrs)...)
}
