// Package response writes the uniform JSON envelope every endpoint returns:
//
//	{"success": bool, "message": string, "data": any, "error": any}
package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/service"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Error   any    `json:"error"`
}

// Detail is the error object shown outside production.
type Detail struct {
	Message string `json:"message"`
}

// OK writes a success envelope.
func OK(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope.
func Fail(c echo.Context, status int, message string, detail any) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Error: detail})
}

// StatusOf maps a service error kind to an HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a failure envelope.  The underlying cause is exposed
// only when debug is set; in production internal failures carry no detail.
func Error(c echo.Context, err error, debug bool) error {
	e := service.AsError(err)
	var detail any
	if debug && e.Err != nil {
		detail = Detail{Message: e.Err.Error()}
	}
	status := StatusOf(e)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), e)
	}
	return Fail(c, status, e.Message, detail)
}

// HTTPErrorHandler renders errors that escape handlers, such as unknown
// routes and malformed bodies, in the envelope format.
func HTTPErrorHandler(debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			}
			var detail any
			if debug && he.Internal != nil {
				detail = Detail{Message: he.Internal.Error()}
			}
			_ = Fail(c, he.Code, msg, detail)
			return
		}
		_ = Error(c, err, debug)
	}
}
