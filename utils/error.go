package utils

import (
	"errors"
	"fmt"
)

// Store drivers return these; the workflow layer turns them into AppErrors.
var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorDuplicateKey   = errors.New("duplicate key")
)

type ErrorKind string

const (
	KindNotFound         ErrorKind = "NotFound"
	KindInvalidState     ErrorKind = "InvalidState"
	KindInvalidReference ErrorKind = "InvalidReference"
	KindConflict         ErrorKind = "Conflict"
	KindExternalFailure  ErrorKind = "ExternalFailure"
	KindInvalidInput     ErrorKind = "InvalidInput"
	KindForbidden        ErrorKind = "Forbidden"
	KindUnauthorized     ErrorKind = "Unauthorized"
	KindInternal         ErrorKind = "Internal"
)

// AppError is the error every surfaced operation fails with.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
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

func NewAppError(kind ErrorKind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapAppError(kind ErrorKind, err error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorKindOf returns Internal for errors that are not AppErrors.
func ErrorKindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && ErrorKindOf(err) == kind
}
