// Package apierr defines the errors a request can terminate with and how they
// are rendered. Every error is terminal: nothing is retried.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// Kind classifies an Error
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindNotFound
	KindForbidden
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// AuthenticationFailed is the only message a caller sees for a rejected token or login.
const AuthenticationFailed = "Authentication failed!"

// Error is a request-terminating error with a user-visible message
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthenticated wraps an authentication failure. cause is kept for logs only.
func Unauthenticated(message string, cause error) *Error {
	return &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: message, Err: cause}
}

// NotFound reports a missing group, subject, session or member
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// Forbidden reports an authenticated caller without the required membership or role
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Status: http.StatusForbidden, Message: message}
}

// Conflict reports a duplicate rendered as 409
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: message}
}

// Duplicate reports a duplicate rendered as 400 (names, emails, memberships)
func Duplicate(message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusBadRequest, Message: message}
}

// Validation reports malformed input
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusUnprocessableEntity, Message: message}
}

// Internal wraps an unexpected failure; its detail is logged, never rendered.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// Is reports whether err is an *Error of the given kind
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// FromBinding converts a gin binding failure into a validation error
func FromBinding(err error) *Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return Validation(fmt.Sprintf("Field '%s' failed on '%s=%s'", fe.Field(), fe.Tag(), fe.Param()))
		}
		return Validation(fmt.Sprintf("Field '%s' failed on '%s'", fe.Field(), fe.Tag()))
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return Validation("Malformed JSON body")
	case errors.As(err, &typeErr):
		return Validation(fmt.Sprintf("Field '%s' has the wrong type", typeErr.Field))
	}
	return Validation(err.Error())
}

// ParamID parses a numeric path parameter. label names it in the error message.
func ParamID(c *gin.Context, name, label string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, Validation(fmt.Sprintf("Invalid %s", label))
	}
	return uint(id), nil
}

// Respond renders err as {"error": message} and aborts the gin chain
func Respond(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Internal(err)
	}

	entry := log.WithFields(log.Fields{
		"kind":   e.Kind.String(),
		"status": e.Status,
		"path":   c.FullPath(),
	})
	switch e.Kind {
	case KindInternal:
		entry.WithError(e.Err).Error("request failed")
	case KindAuthentication:
		entry.WithError(e.Err).Debug("authentication rejected")
	default:
		entry.Debug(e.Message)
	}

	c.AbortWithStatusJSON(e.Status, gin.H{"error": e.Message})
}
