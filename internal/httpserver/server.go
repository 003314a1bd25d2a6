package httpserver

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/learnhub/internal/transport"
	"github.com/Skotchmaster/learnhub/pkg/apperr"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	loggingmw "github.com/Skotchmaster/learnhub/pkg/middleware/logging"
)

// NewServer builds the echo instance with the shared middleware stack.
// Routes are added by Register.
func NewServer(logger *slog.Logger, allowOrigins ...string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.HTTPErrorHandler = ErrorHandler
	e.Validator = transport.EchoValidator{}

	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	if len(allowOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     allowOrigins,
			AllowCredentials: true,
			AllowHeaders: []string{
				echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
			},
		}))
	}
	return e
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("Invalid request body").Wrap(err)
	}
	return c.Validate(req)
}

// failed logs a handler failure at a level matching its status and hands the
// error on to the error handler.
func failed(l *slog.Logger, event string, err error) error {
	status, _ := Translate(err)
	if status >= 500 {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "error", err)
	}
	return err
}

func handlerLogger(c echo.Context, name string) *slog.Logger {
	return logging.FromContext(c.Request().Context()).With("handler", name)
}
