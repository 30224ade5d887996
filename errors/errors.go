package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Kinds of failure surfaced to callers. Match them with the standard errors.Is.
var (
	ErrValidation  = stderrors.New("validation error")
	ErrStorage     = stderrors.New("storage error")
	ErrPersistence = stderrors.New("persistence error")
	ErrNotFound    = stderrors.New("not found")
	ErrAuth        = stderrors.New("auth error")
)

// Error is an error carrying the HTTP status it should be reported with.
type Error struct {
	Message string            `json:"errors"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	kind    error
	cause   error
}

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

var ErrInternalServerError = New("internal server error", http.StatusInternalServerError)

// Validation reports client-correctable input defects, keyed by field name.
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return &Error{
		Message: strings.Join(msgs, "; "),
		Status:  http.StatusBadRequest,
		Fields:  fields,
		kind:    ErrValidation,
	}
}

// InvalidField is a Validation error for a single field.
func InvalidField(field, message string) *Error {
	return Validation(map[string]string{field: message})
}

// Storage reports a failed blob upload. Retryable by the caller.
func Storage(err error) *Error {
	return &Error{
		Message: "photo upload failed",
		Status:  http.StatusBadGateway,
		kind:    ErrStorage,
		cause:   err,
	}
}

// Persistence reports a failed record write. Retryable by the caller.
func Persistence(err error) *Error {
	return &Error{
		Message: "saving record failed",
		Status:  http.StatusServiceUnavailable,
		kind:    ErrPersistence,
		cause:   err,
	}
}

func NotFound(entity, id string) *Error {
	return &Error{
		Message: fmt.Sprintf("%s %s not found", entity, id),
		Status:  http.StatusNotFound,
		kind:    ErrNotFound,
	}
}

func Auth(message string, err error) *Error {
	return &Error{
		Message: message,
		Status:  http.StatusUnauthorized,
		kind:    ErrAuth,
		cause:   err,
	}
}

// FromError converts any error into an *Error, defaulting to a 500.
func FromError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return &Error{
		Message: ErrInternalServerError.Message,
		Status:  http.StatusInternalServerError,
		cause:   err,
	}
}

func IsValidation(err error) bool  { return stderrors.Is(err, ErrValidation) }
func IsNotFound(err error) bool    { return stderrors.Is(err, ErrNotFound) }
func IsAuth(err error) bool        { return stderrors.Is(err, ErrAuth) }
func IsStorage(err error) bool     { return stderrors.Is(err, ErrStorage) }
func IsPersistence(err error) bool { return stderrors.Is(err, ErrPersistence) }

// ErrorHandler is the gin-rate-limit rejection handler.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"errors": "too many requests, try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
		"status": http.StatusText(http.StatusTooManyRequests),
	})
}
