package graph

import (
	"context"
	"errors"
	"fmt"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/thereayou/chatql/internal/services"
	"github.com/thereayou/chatql/internal/validation"
	"go.uber.org/zap"
)

// Error is what a resolver hands back to graphql-go. Its extensions carry a
// machine readable code and, for validation failures, the field list.
type Error struct {
	Message string
	Code    string
	Fields  []validation.FieldError
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": e.Code}
	if len(e.Fields) > 0 {
		ext["fields"] = e.Fields
	}
	return ext
}

var codes = []struct {
	kind error
	code string
}{
	{services.ErrValidation, "BAD_USER_INPUT"},
	{services.ErrConflict, "CONFLICT"},
	{services.ErrUnauthorized, "UNAUTHENTICATED"},
	{services.ErrNotFound, "NOT_FOUND"},
}

// toError passes typed service errors through and hides everything else
// behind the generic message.
func toError(log *zap.Logger, err error) error {
	if e, ok := services.AsError(err); ok {
		for _, c := range codes {
			if errors.Is(e, c.kind) {
				return &Error{Message: e.Message, Code: c.code, Fields: e.Fields}
			}
		}
		return &Error{Message: services.GenericMessage, Code: "INTERNAL_SERVER_ERROR"}
	}

	log.Error("graphql resolver failed", zap.Error(err))
	return &Error{Message: services.GenericMessage, Code: "INTERNAL_SERVER_ERROR"}
}

type panicHandler struct {
	log *zap.Logger
}

func (h panicHandler) MakePanicError(_ context.Context, value interface{}) *gqlerrors.QueryError {
	h.log.Error("graphql resolver panicked", zap.String("panic", fmt.Sprint(value)))
	return &gqlerrors.QueryError{
		Message:    services.GenericMessage,
		Extensions: map[string]interface{}{"code": "INTERNAL_SERVER_ERROR"},
	}
}
