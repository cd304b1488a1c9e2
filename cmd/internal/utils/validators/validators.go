package validators

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

var (
	handleRegex = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
	hasSpaces   = regexp.MustCompile(`\s+`)
)

// New returns a validator with every custom tag of the platform registered.
func New() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("handle", Handle)
	_ = validate.RegisterValidation("nodupes", NoDupes)
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
	return validate
}

// Handle accepts public identifiers of users and containers.
func Handle(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return IsHandle(field.String())
}

func IsHandle(s string) bool {
	return handleRegex.MatchString(s)
}

// NoWhiteSpaces returns false if the string contains any whitespace (rejecting the user input).
func NoWhiteSpaces(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}

	str := field.String()
	return !hasSpaces.MatchString(str)
}

func NoDupes(fl validator.FieldLevel) bool {
	slice := fl.Field()
	if slice.Kind() != reflect.Slice {
		log.Warnf("validator 'nodupes' applied to non-slice type: %s\n", slice.Kind().String())
		return false
	}

	length := slice.Len()
	seen := make(map[any]bool, length)
	for i := 0; i < length; i++ {
		val := slice.Index(i).Interface()
		if _, exists := seen[val]; exists {
			return false
		}
		seen[val] = true
	}
	return true
}
