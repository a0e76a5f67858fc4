package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/session"
	"github.com/trezcool/coachdesk/core/student"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionExpired  = echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errHttpUnavailable = echo.NewHTTPError(http.StatusServiceUnavailable, "the data service is unavailable, please try again")
	errMachineNotInCtx = errors.New("session machine not found in echo.Context")
	notFoundErrs       = []error{student.ErrNotFound, course.ErrNotFound, payment.ErrNotFound}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.AuthError:
			code = http.StatusUnauthorized
			message = origErr.Error()
		case *core.FetchError:
			logger.Warn(origErr.Error(), err, contextLogUser(ctx))
			code = errHttpUnavailable.Code
			message = errHttpUnavailable.Message
		default:
			if isNotFound(origErr) {
				code = errHttpNotFound.Code
				message = errHttpNotFound.Message
				break
			}
			if origErr == session.ErrNotFound {
				code = errSessionExpired.Code
				message = errSessionExpired.Message
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextLogUser(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func isNotFound(err error) bool {
	for _, nf := range notFoundErrs {
		if err == nf {
			return true
		}
	}
	return false
}
