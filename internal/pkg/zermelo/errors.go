package zermelo

import (
	"fmt"
	"net/http"
)

// Code is the symbolic error code handed to callers.
type Code string

const (
	CodeMissingParameters       Code = "MISSING_PARAMETERS"
	CodeScheduleInvalidDate     Code = "SCHEDULE_INVALID_DATE"
	CodeUpstreamUnavailable     Code = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamError           Code = "UPSTREAM_ERROR"
	CodeUpstreamInvalidResponse Code = "UPSTREAM_INVALID_RESPONSE"
)

var (
	ErrMissingParameters       = &Error{Code: CodeMissingParameters}
	ErrScheduleInvalidDate     = &Error{Code: CodeScheduleInvalidDate}
	ErrUpstreamUnavailable     = &Error{Code: CodeUpstreamUnavailable}
	ErrUpstreamError           = &Error{Code: CodeUpstreamError}
	ErrUpstreamInvalidResponse = &Error{Code: CodeUpstreamInvalidResponse}
)

// Error is returned by every Client method. Status is the upstream HTTP
// status and is only set for CodeUpstreamError.
type Error struct {
	Code   Code
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Code, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Code, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}

	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so the
// package sentinels match errors carrying extra detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Code == e.Code
}

// HTTPStatus is the status a server surface should answer with for e.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeMissingParameters, CodeScheduleInvalidDate:
		return http.StatusBadRequest
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case CodeUpstreamError, CodeUpstreamInvalidResponse:
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
