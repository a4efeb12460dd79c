// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger writes the error envelope for a failed request and logs it.
// Internal failures are logged at Error with their cause; caller mistakes
// (validation, auth, not found) are logged at Debug.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: log}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
}

// Respond reports err to the caller. msg describes what was being attempted.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if apperr.KindOf(err) == apperr.Internal {
		e.log.Error(msg, e.fields(r, err)...)
	} else {
		e.log.Debug(msg, append(e.fields(r, err), zap.String("kind", apperr.KindOf(err).String()))...)
	}
	respond.Error(w, r, err)
}

// LogServerError reports an unexpected failure as 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e.log.Error(msg, e.fields(r, err)...)
	respond.Error(w, r, apperr.Wrap(apperr.Internal, msg, err))
}

// LogBadRequest reports a malformed request as 400 with a public message.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, public string) {
	e.log.Info(msg, e.fields(r, err)...)
	respond.Error(w, r, apperr.Wrap(apperr.Validation, public, err))
}

// NotFound is the router's fallback for unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, apperr.New(apperr.NotFound, "Route not found"))
}

// MethodNotAllowed is the router's fallback for known paths with the wrong
// method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.Fail(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
