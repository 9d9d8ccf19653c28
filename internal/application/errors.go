package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeTerminal      = "FINALIZATION_TERMINAL"
	ErrCodeAlreadyActive = "ALREADY_ACTIVE"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

func NewParseError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeParse,
		Message:    "Payment return could not be parsed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewTerminalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeTerminal,
		Message:    "Order finalization failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewAlreadyActiveError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeAlreadyActive,
		Message:    "Finalization is already in progress for this cart",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
