package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 30
	PasswordMinLength = 8

	usernameTag = "username"
	notBlankTag = "notblank"
)

// UsernamePattern is the only accepted username alphabet
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var (
	translator ut.Translator
	registered sync.Map
)

func init() {
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
}

// IsValidUsername checks alphabet and length.
func IsValidUsername(username string) bool {
	n := len(username)
	return n >= UsernameMinLength && n <= UsernameMaxLength && UsernamePattern.MatchString(username)
}

// Register installs the custom tags, JSON field names and english messages on v.
// It is safe to call more than once with the same engine.
func Register(v *validator.Validate) error {
	if _, loaded := registered.LoadOrStore(v, struct{}{}); loaded {
		return nil
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := en_translations.RegisterDefaultTranslations(v, translator); err != nil {
		return err
	}
	if err := v.RegisterValidation(usernameTag, func(fl validator.FieldLevel) bool {
		return UsernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		return err
	}

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{usernameTag, notBlankTag} {
		if err := v.RegisterTranslation(tag, translator, noop, translateCustom); err != nil {
			return err
		}
	}
	return nil
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case usernameTag:
		return fe.Field() + " may only contain letters, numbers and underscores"
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	default:
		return fe.Field() + " is invalid"
	}
}

// FieldErrors turns a validator error into field -> message pairs. It returns nil
// for errors that did not come from the validator (e.g. malformed JSON).
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}
