package domain

import "errors"

// Error kinds. Every error surfaced to API clients wraps exactly one of these.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrDuplicateIdentity = newKindError(ErrBadRequest, "cannot register with duplicate email or username")
	ErrUserNotFound      = newKindError(ErrBadRequest, "user does not exist")
	ErrCalendarExists    = newKindError(ErrBadRequest, "user calendar already exists")
	ErrCalendarNotFound  = newKindError(ErrBadRequest, "user does not have a calendar")
	ErrPlanNotFound      = newKindError(ErrBadRequest, "plan does not exist")
	ErrStaleReference    = newKindError(ErrBadRequest, "date referenced plans that no longer exist - please reload")
	ErrInvalidDate       = newKindError(ErrBadRequest, "date must be formatted as YYYYMMDD")
	ErrExportDisabled    = newKindError(ErrBadRequest, "export storage not configured")

	ErrMissingCredential = newKindError(ErrUnauthorized, "missing bearer token")
	ErrInvalidToken      = newKindError(ErrUnauthorized, "invalid token")
	ErrTokenExpired      = newKindError(ErrUnauthorized, "token expired")
	ErrSessionInvalid    = newKindError(ErrUnauthorized, "please log in again to complete your request")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
