// Package forms turns submitted form data into field-level error annotations.
package forms

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Messages shown next to form fields.
const (
	MsgRequired         = "This field is required."
	MsgInvalidEmail     = "Enter a valid email address."
	MsgInvalidUsername  = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgUsernameTaken    = "A user with that username already exists."
	MsgEmailTaken       = "A user with that email already exists."
	MsgPasswordMismatch = "The two password fields didn't match."
	MsgInvalidImage     = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

// NonFieldKey collects errors that do not belong to a single field
const NonFieldKey = "__all__"

// FieldErrors maps a form field name to its error messages
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

func (fe FieldErrors) Get(field string) []string {
	return fe[field]
}

// First returns the first message for field, or ""
func (fe FieldErrors) First(field string) string {
	if msgs := fe[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (fe FieldErrors) Any() bool {
	for _, msgs := range fe {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// Merge appends every message of other into fe
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		for _, m := range msgs {
			fe.Add(field, m)
		}
	}
}

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var (
	registerOnce sync.Once
	emailCheck   = validator.New()
)

// RegisterValidators makes validation errors report form field names and installs
// the custom "username" and "mailaddr" tags on gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("mailaddr", func(fl validator.FieldLevel) bool {
			return ValidEmail(fl.Field().String())
		})
	})
}

// FromBinding converts a gin binding error into field annotations. Errors that are not
// validation errors end up under NonFieldKey.
func FromBinding(err error) FieldErrors {
	out := FieldErrors{}
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		out.Add(NonFieldKey, err.Error())
		return out
	}
	for _, fe := range verrs {
		out.Add(fe.Field(), messageFor(fe))
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "email", "mailaddr":
		return MsgInvalidEmail
	case "username":
		return MsgInvalidUsername
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), len([]rune(fmt.Sprint(fe.Value()))))
	default:
		return fmt.Sprintf("Enter a valid value (%s).", fe.Tag())
	}
}

// ValidUsername reports whether s only uses letters, digits and @/./+/-/_
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidEmail runs the validator's "email" rule and additionally requires a dotted
// domain without a trailing dot
func ValidEmail(s string) bool {
	if emailCheck.Var(s, "required,email") != nil {
		return false
	}
	at := strings.LastIndex(s, "@")
	domain := s[at+1:]
	return at > 0 && strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// Validate runs obj's binding tags through gin's validator
func Validate(obj interface{}) FieldErrors {
	RegisterValidators()
	return FromBinding(binding.Validator.ValidateStruct(obj))
}
