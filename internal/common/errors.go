package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// AppError is the error type surfaced by services. StatusCode is the HTTP
// status the transport layer answers with.
type AppError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Marshal() []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"message":"internal error"}`)
	}
	return b
}

func NotFoundError(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Message: message, Err: err}
}

// InvalidArgumentError reports a request that could not be parsed.
func InvalidArgumentError(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Message: message, Err: err}
}

// ValidationError reports a well-formed request carrying an invalid value,
// such as an empty user name.
func ValidationError(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusUnprocessableEntity, Message: message, Err: err}
}

func DataBaseError(err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: "database error", Err: err}
}

func SystemError(err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: "internal error", Err: err}
}

// StatusCode returns the HTTP status carried by err, or 500 when err is not
// an *AppError.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsValidation(err error) bool {
	return StatusCode(err) == http.StatusUnprocessableEntity
}
