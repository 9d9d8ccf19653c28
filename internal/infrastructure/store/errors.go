package store

import (
	"errors"
	"fmt"
)

type StoreError struct {
	Code       string
	Message    string
	StatusCode int
}

type storeErrorResponse struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *StoreError) IsServerError() bool {
	return e.StatusCode >= 500
}

func IsStoreError(err error) (*StoreError, bool) {
	var storeErr *StoreError
	ok := errors.As(err, &storeErr)
	return storeErr, ok
}
