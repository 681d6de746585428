// This file implements the Builder Pattern for constructing JSON
// responses and the mapping from error kinds to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budgettracker/internal/core"
	"budgettracker/internal/middleware/trace"
	"budgettracker/internal/services"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	cookies    []*http.Cookie
	body       any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) Cookie(c *http.Cookie) *ResponseBuilder {
	b.cookies = append(b.cookies, c)
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes no content.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	for _, c := range b.cookies {
		http.SetCookie(w, c)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

func OK(v any) *ResponseBuilder { return NewResponse().JSON(v) }

func Created(v any) *ResponseBuilder { return NewResponse().Status(http.StatusCreated).JSON(v) }

func NoContent() *ResponseBuilder { return NewResponse().Status(http.StatusNoContent) }

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a JSON error body.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func fieldError(field, message string) *ResponseBuilder {
	return NewResponse().Status(http.StatusBadRequest).JSON(errorBody{Error: message, Field: field})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func TooManyRequestsError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, message)
}

func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// errorFor maps an error to its response. Unexpected errors never expose
// their message.
func errorFor(err error) *ResponseBuilder {
	var (
		invalid  *core.ValidationError
		conflict *core.ConstraintViolation
	)
	switch {
	case errors.As(err, &invalid):
		return fieldError(invalid.Field, invalid.Err.Error())
	case errors.Is(err, core.ErrValidation):
		return BadRequestError(err.Error())
	case errors.As(err, &conflict):
		return ConflictError(conflict.Message)
	case errors.Is(err, core.ErrConflict):
		return ConflictError("resource already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		return UnauthorizedError("invalid email or password")
	case errors.Is(err, core.ErrUnauthenticated):
		return UnauthorizedError("authentication required")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, services.ErrExportDisabled):
		return ServiceUnavailableError(services.ErrExportDisabled.Error())
	default:
		return InternalServerError()
	}
}

// writeError writes the response for err, logging the unexpected ones.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorFor(err)
	if resp.statusCode >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"request_id", trace.RequestID(r),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	resp.Write(w)
}
