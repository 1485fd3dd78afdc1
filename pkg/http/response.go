package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SuccessResponse writes data as the bare JSON body.
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// ErrorResponse writes an ErrorBody with the given status.
func ErrorResponse(c echo.Context, status int, message string, details interface{}) error {
	body := ErrorBody{Error: message, Details: details}
	if status >= http.StatusInternalServerError {
		body.Timestamp = time.Now().Unix()
	}
	return c.JSON(status, body)
}

// BadRequestResponse writes a 400 with validation details.
func BadRequestResponse(c echo.Context, message string, details interface{}) error {
	return ErrorResponse(c, http.StatusBadRequest, message, details)
}

func InternalServerErrorResponse(c echo.Context) error {
	return ErrorResponse(c, http.StatusInternalServerError, "internal server error", nil)
}

// AppErrorResponse writes err as an ErrorBody, falling back to 500 for unknown errors.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorResponse(c, appErr.Status, appErr.Message, appErr.Details)
	}
	return InternalServerErrorResponse(c)
}
