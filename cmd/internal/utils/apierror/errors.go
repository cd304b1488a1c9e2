package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse abstracts all API error responses to the user.
//
// This interface does not implement `error`, since its only purpose
// is to be used for API responses and not for logging circumstances.
//
// In general, the whole ErrorResponse can be sent for serialization.
type ErrorResponse interface {
	// Code is the HTTP status code to be returned.
	Code() int
}

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (a *APIError) Code() int {
	return a.Status
}

type StructuredError struct {
	Errors map[string][]string `json:"errors"`
	Status int                 `json:"-"`
}

func (s *StructuredError) Code() int {
	return s.Status
}

func (s *StructuredError) Add(field, problem string) {
	s.Errors[field] = append(s.Errors[field], problem)
}

var (
	MalformedJSONError  = NewSimple(400, "Malformed JSON body")
	MalformedBodyError  = NewSimple(400, "Malformed request body")
	InternalServerError = NewSimple(500, "Internal server error")

	// DependencyWriteError is returned when the blob store or the search index
	// failed mid-write. Compensation already ran when this is returned.
	DependencyWriteError = NewSimple(502, "A storage dependency failed, the operation was not applied")

	NotFoundError      = NewSimple(404, "Resource not found")
	ForbiddenError     = NewSimple(403, "You are not allowed to perform this action")
	InvalidIDError     = NewSimple(400, "The provided ID is invalid, IDs are positive int64 values")
	HandleTakenError   = NewSimple(409, "Handle is already taken")
	SelfFollowError    = NewSimple(400, "Users cannot follow themselves")
	NotADraftError     = NewSimple(409, "Item has no pending draft")
	ItemIsDraftError   = NewSimple(409, "Item is an unpublished draft, publish it first")
	BodyMissingError   = NewSimple(404, "Item body is missing from storage")
	InvalidQueryError  = NewSimple(400, "Search query has no searchable terms")
	JoinDeniedError    = NewSimple(403, "This container does not accept new members")
	LastAdminError     = NewSimple(409, "The last admin cannot leave the container")
	InvalidPeriodError = NewSimple(400, "Period must be one of: weekly, monthly")

	/*
	 * Used for authentications
	 */
	UnauthorizedError     = NewSimple(401, "Unauthorized")
	InvalidAuthTokenError = NewSimple(401, "Invalid or expired authorization token")
	MissingAccessError    = NewSimple(403, "Missing access")
	IDPUserNotFoundError  = NewSimple(404, "User not found")
)

func FromValidationError(err error) *StructuredError {
	var ve validator.ValidationErrors
	ok := errors.As(err, &ve)
	if !ok {
		return &StructuredError{
			Errors: map[string][]string{"body": {"Invalid value provided"}},
			Status: http.StatusBadRequest,
		}
	}

	problems := map[string][]string{}
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required":
			problems[field] = append(problems[field], "This field is required")
		case "min":
			problems[field] = append(problems[field], "Value is too short, min: "+fe.Param())
		case "max":
			problems[field] = append(problems[field], "Value is too long, max: "+fe.Param())
		case "oneof":
			problems[field] = append(problems[field], "Value must be one of: "+fe.Param())
		case "handle":
			problems[field] = append(problems[field], "Value must be 3-30 lowercase letters, digits or underscores")
		case "nodupes":
			problems[field] = append(problems[field], "Value cannot contain duplicates")
		case "nospaces":
			problems[field] = append(problems[field], "Value cannot contain whitespaces")

		default:
			problems[field] = append(problems[field], "Invalid value provided")
		}
	}

	return &StructuredError{
		Errors: problems,
		Status: http.StatusBadRequest,
	}
}

func NewSimple(status int, msg string, args ...any) *APIError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &APIError{Status: status, Message: msg}
}

func NewStructured(code int) *StructuredError {
	return &StructuredError{
		Errors: make(map[string][]string),
		Status: code,
	}
}

func NewForbiddenError(msg string) *APIError {
	return NewSimple(http.StatusForbidden, msg)
}

func NewPermissionError(perm int64) *APIError {
	return NewSimple(http.StatusForbidden, "Missing required permission: %d", perm)
}

func NewInvalidParamTypeError(name, dataType string) *APIError {
	return NewSimple(http.StatusBadRequest, "Parameter '%s' has invalid type, expected: %s", name, dataType)
}

func NewMissingParamError(name string) *APIError {
	return NewSimple(http.StatusBadRequest, "Missing required parameter '%s'", name)
}
