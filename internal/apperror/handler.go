package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/notes-service/pkg/logger"
	"go.uber.org/zap"
)

// Response is the JSON body of every error
type Response struct {
	Error        Kind         `json:"error"`
	Message      string       `json:"message"`
	Details      []FieldError `json:"details,omitempty"`
	LimitReached bool         `json:"limit_reached,omitempty"`
}

// NewHTTPErrorHandler maps every error reaching echo onto the taxonomy.
// In production the cause of internal errors is withheld from clients.
func NewHTTPErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		appErr := classify(err)
		log := logger.FromContext(c)

		resp := Response{
			Error:        appErr.Kind,
			Message:      appErr.Message,
			Details:      appErr.Fields,
			LimitReached: appErr.LimitReached,
		}

		if appErr.Kind == KindInternal {
			log.Error("Request failed", zap.Error(err))
			if !production && appErr.Err != nil {
				resp.Message = appErr.Err.Error()
			}
		} else {
			log.Debug("Request rejected", zap.String("kind", string(appErr.Kind)), zap.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(appErr.Status())
		} else {
			writeErr = c.JSON(appErr.Status(), resp)
		}
		if writeErr != nil {
			log.Error("Failed to write error response", zap.Error(writeErr))
		}
	}
}

func classify(err error) *Error {
	if appErr, ok := As(err); ok {
		return appErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	return Internal(err)
}

func fromHTTPError(httpErr *echo.HTTPError) *Error {
	message := http.StatusText(httpErr.Code)
	if m, ok := httpErr.Message.(string); ok && m != "" {
		message = m
	}

	switch httpErr.Code {
	case http.StatusNotFound:
		return New(KindNotFound, "route not found")
	case http.StatusMethodNotAllowed:
		return New(KindMethodNotAllowed, message)
	case http.StatusRequestEntityTooLarge:
		return New(KindPayloadTooLarge, message)
	case http.StatusTooManyRequests:
		return New(KindRateLimited, "too many requests, please try again later")
	case http.StatusUnauthorized:
		return New(KindMissingCredential, message)
	case http.StatusForbidden:
		return New(KindInsufficientRole, message)
	case http.StatusBadRequest:
		return New(KindValidation, message)
	}

	if httpErr.Code >= http.StatusInternalServerError {
		return Wrap(KindInternal, "internal server error", httpErr)
	}
	return New(KindValidation, message)
}
