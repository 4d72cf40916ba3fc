package errors

import (
	"errors"
	"net/http"
	"strings"
)

type ErrCode string

const (
	ErrCodeNotFound        ErrCode = "NotFound"
	ErrCodeServiceFailure  ErrCode = "ServiceFailure"
	ErrCodeAPIBadRequest   ErrCode = "BadRequest"
	ErrCodeExisted         ErrCode = "Existed"
	ErrCodeUnauthenticated ErrCode = "Unauthenticated"
	ErrCodeForbidden       ErrCode = "Forbidden"
	ErrCodeNotOwner        ErrCode = "NotOwner"
	ErrCodeQuotaExceeded   ErrCode = "QuotaExceeded"
)

// Err is the application error. It carries a code for programmatic handling plus a
// human-readable message safe to surface to the requester; causes stay internal.
type Err struct {
	Code  ErrCode
	msg   string
	cause error
}

func (e *Err) Error() string {
	return e.msg
}

// Trace returns the cause chain associated with the error
func (e *Err) Trace() string {
	b := &strings.Builder{}
	b.WriteString(e.msg)
	err := errors.Unwrap(e)
	for err != nil {
		b.WriteString("\nCaused by: ")
		b.WriteString(err.Error())
		err = errors.Unwrap(err)
	}
	return b.String()
}

func (e *Err) Unwrap() error {
	return e.cause
}

func (e *Err) WithCause(c error) *Err {
	e.cause = c
	return e
}

// prefer appSpecificErr(msg) over appSpecificErr(msg, cause) since the latter's method signature has less
// readability - user needs to look up docs to know the 2nd param is for cause, while the first one can use
// WithCause() to be explicit
func NewServiceFailure(m string) *Err {
	return &Err{
		Code: ErrCodeServiceFailure,
		msg:  m,
	}
}

func NewNotFound(m string) *Err {
	return &Err{
		Code: ErrCodeNotFound,
		msg:  m,
	}
}

func NewBadInput(m string) *Err {
	return &Err{
		Code: ErrCodeAPIBadRequest,
		msg:  m,
	}
}

func NewExisted(m string) *Err {
	return &Err{
		Code: ErrCodeExisted,
		msg:  m,
	}
}

// NewUnauthenticated marks requests lacking a signed-in principal
func NewUnauthenticated(m string) *Err {
	return &Err{
		Code: ErrCodeUnauthenticated,
		msg:  m,
	}
}

// NewForbidden marks non-admin principals hitting admin surfaces
func NewForbidden(m string) *Err {
	return &Err{
		Code: ErrCodeForbidden,
		msg:  m,
	}
}

// NewNotOwner marks operations against a page outside the caller's own page list
func NewNotOwner(m string) *Err {
	return &Err{
		Code: ErrCodeNotOwner,
		msg:  m,
	}
}

func NewQuotaExceeded(m string) *Err {
	return &Err{
		Code: ErrCodeQuotaExceeded,
		msg:  m,
	}
}

// StatusCode returns the http response status code associated with the Err value
func (e *Err) StatusCode() int {
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAPIBadRequest:
		return http.StatusBadRequest
	case ErrCodeExisted, ErrCodeQuotaExceeded:
		return http.StatusConflict
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeNotOwner:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
