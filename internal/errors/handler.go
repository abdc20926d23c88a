package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to an APIError and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	apiErr := ToAPIError(err)
	apiErr.TraceID = reqID

	level := slog.LevelWarn
	if apiErr.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	render.Render(w, r, apiErr)
}

// ToAPIError maps an error to the API error it is reported as. The result is
// always a fresh value.
func ToAPIError(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return clone(ErrTimeout)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return clone(apiErr)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeValidation:
			return New(http.StatusBadRequest, "VALIDATION_FAILED", appErr.Message)
		case ErrTypeNotFound:
			apiErr := clone(ErrNotFound)
			apiErr.Message = appErr.Message
			return apiErr
		case ErrTypeFetch:
			return NewWithDetails(ErrUpstream.StatusCode, ErrUpstream.ErrorCode, appErr.Message, errString(appErr.Cause))
		case ErrTypeParsing:
			return NewWithDetails(http.StatusUnprocessableEntity, "PARSING_FAILED", appErr.Message, errString(appErr.Cause))
		case ErrTypeStorage:
			return New(http.StatusInternalServerError, "STORAGE_ERROR", appErr.Message)
		case ErrTypeConfig:
			return New(http.StatusInternalServerError, "CONFIG_ERROR", appErr.Message)
		}
	}

	return clone(ErrInternalServer)
}

// HandlePanic logs a recovered panic and responds with a 500
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())
	stack := string(debug.Stack())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack),
	)

	apiErr := ErrPanic(recovered)
	apiErr.TraceID = reqID
	if h.includeStack {
		apiErr.Details = PanicRecovery{Message: apiErr.Details.(PanicRecovery).Message, Stack: stack}
	}

	render.Render(w, r, apiErr)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	apiErr := NotFoundError(r.URL.Path)
	apiErr.TraceID = middleware.GetReqID(r.Context())
	render.Render(w, r, apiErr)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apiErr := clone(ErrMethodNotAllowed)
	apiErr.TraceID = middleware.GetReqID(r.Context())
	render.Render(w, r, apiErr)
}

func clone(e *APIError) *APIError {
	cp := *e
	return &cp
}

func errString(err error) interface{} {
	if err == nil {
		return nil
	}
	return err.Error()
}
