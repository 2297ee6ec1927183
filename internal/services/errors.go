package services

import (
	"errors"

	"github.com/thereayou/chatql/internal/validation"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream failure")
	ErrInternal     = errors.New("internal error")
)

// GenericMessage is all a client learns about upstream and internal failures.
const GenericMessage = "Something went wrong."

// Error is a failure that is safe to show to a client. Kind is one of the
// sentinels above and is matched by errors.Is.
type Error struct {
	Kind    error
	Message string
	Fields  []validation.FieldError
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.cause }

func Invalid(message string, fields ...validation.FieldError) *Error {
	return &Error{Kind: ErrValidation, Message: message, Fields: fields}
}

func NotFound(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func Upstream(cause error) *Error {
	return &Error{Kind: ErrUpstream, Message: GenericMessage, cause: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: ErrInternal, Message: GenericMessage, cause: cause}
}

// checkInput validates v and wraps its field errors. The first field message
// doubles as the summary.
func checkInput(v any) error {
	fields := validation.Struct(v)
	if len(fields) == 0 {
		return nil
	}
	return Invalid(fields[0].Message, fields...)
}

// AsError returns err as *Error when it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
