package http

import (
	"fmt"
	"net/http"
)

// AppError represents an application error with its HTTP status.
type AppError struct {
	Message string
	Details interface{}
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(message string, status int) *AppError {
	return &AppError{Message: message, Status: status}
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return NewAppError(message, http.StatusBadRequest)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(message, http.StatusTooManyRequests)
}

func BadGatewayError(message string) *AppError {
	return NewAppError(message, http.StatusBadGateway)
}

func InternalError(message string) *AppError {
	return NewAppError(message, http.StatusInternalServerError)
}
