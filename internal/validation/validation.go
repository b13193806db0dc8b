package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phoneRegex   = regexp.MustCompile(`^[6-9]\d{9}$`)
	upperRegex   = regexp.MustCompile(`[A-Z]`)
	digitRegex   = regexp.MustCompile(`\d`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return PasswordProblem(fl.Field().String()) == ""
	})
	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || phoneRegex.MatchString(s)
	})
	return v
}

// Errors maps a field name to its validation messages
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e[f], " ")))
	}
	return strings.Join(parts, "; ")
}

// Add appends a message for field
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Err returns e as an error, or nil when no field failed
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// FieldError builds a single-field validation error
func FieldError(field, message string) error {
	return Errors{field: {message}}
}

// AsErrors extracts field errors from err
func AsErrors(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Struct validates a request struct using its `validate` tags
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := Errors{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "len":
		return fmt.Sprintf("Ensure this field has exactly %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	case "datetime":
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "strongpassword":
		return PasswordProblem(fmt.Sprint(fe.Value()))
	case "phone":
		return "Phone number must be 10 digits and start with 6, 7, 8, or 9."
	default:
		return "Invalid value."
	}
}

// PasswordProblem describes the first strength rule password breaks, or "" if it is strong enough
func PasswordProblem(password string) string {
	switch {
	case len(password) < 8:
		return "Password must be at least 8 characters long."
	case !upperRegex.MatchString(password):
		return "Password must contain at least one uppercase letter."
	case !digitRegex.MatchString(password):
		return "Password must contain at least one digit."
	case !specialRegex.MatchString(password):
		return "Password must contain at least one special character."
	}
	return ""
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return FieldError("email", "This field is required.")
	}
	if err := validate.Var(email, "email"); err != nil {
		return FieldError("email", "Enter a valid email address.")
	}
	return nil
}

// ValidatePassword checks a password against the strength rules
func ValidatePassword(password string) error {
	if problem := PasswordProblem(password); problem != "" {
		return FieldError("password", problem)
	}
	return nil
}

// ValidatePhone accepts an empty value or an Indian mobile number
func ValidatePhone(phone string) error {
	if phone != "" && !phoneRegex.MatchString(phone) {
		return FieldError("phone_number", "Phone number must be 10 digits and start with 6, 7, 8, or 9.")
	}
	return nil
}

// ValidateFirstName requires at least three characters
func ValidateFirstName(name string) error {
	if len([]rune(strings.TrimSpace(name))) < 3 {
		return FieldError("first_name", "Name must be at least 3 characters long.")
	}
	return nil
}
