package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/internal/transport"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

const msgInternal = "Internal server error"

func isMalformedID(err error) bool {
	return uuid.IsInvalidLengthError(err) || strings.HasPrefix(err.Error(), "invalid UUID")
}

// Translate maps any error to a status and envelope. Causes of 5xx errors
// are never copied into the body.
func Translate(err error) (int, transport.Envelope) {
	if ae, ok := apperr.As(err); ok {
		status := ae.Status()
		msg := ae.Message
		if ae.Kind == apperr.KindInternal {
			msg = msgInternal
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return status, transport.Envelope{Message: msg, Errors: ae.Fields, RetryAfter: ae.RetryAfter}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprint(he.Message)
		switch {
		case he.Code >= http.StatusInternalServerError:
			msg = msgInternal
		case errors.Is(he, echo.ErrNotFound):
			msg = "Route not found"
		}
		return he.Code, transport.Fail(msg)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, transport.Envelope{Message: "Validation failed", Errors: transport.FieldErrors(verrs)}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, transport.Fail("Resource not found")
	case errors.Is(err, repo.ErrDuplicate), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusBadRequest, transport.Fail("Duplicate field value entered")
	case isMalformedID(err):
		return http.StatusBadRequest, transport.Fail("Invalid identifier")
	case errors.Is(err, tokens.ErrTokenExpired):
		return http.StatusUnauthorized, transport.Fail("Token has expired")
	case errors.Is(err, tokens.ErrTokenInvalid):
		return http.StatusUnauthorized, transport.Fail("Invalid token")
	}
	return http.StatusInternalServerError, transport.Fail(msgInternal)
}

// ErrorHandler is the single place errors become responses.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := Translate(err)
	l := logging.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		l.Error("unhandled_error", "status", status, "error", err)
	}
	if body.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		l.Error("write_error_response", "error", err)
	}
}
