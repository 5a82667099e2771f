package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	BadRequest           ErrorCode = "BAD_REQUEST"
	NotFound             ErrorCode = "NOT_FOUND"
	Unauthorized         ErrorCode = "UNAUTHORIZED"
	AlreadyStaked        ErrorCode = "ALREADY_STAKED"
	NotStaked            ErrorCode = "NOT_STAKED"
	StakeTooShort        ErrorCode = "STAKE_TOO_SHORT"
	NothingToClaim       ErrorCode = "NOTHING_TO_CLAIM"
	ArithmeticOverflow   ErrorCode = "ARITHMETIC_OVERFLOW"
	MaxStakeReached      ErrorCode = "MAX_STAKE_REACHED"
	AlreadyInitialized   ErrorCode = "ALREADY_INITIALIZED"
	NotInitialized       ErrorCode = "NOT_INITIALIZED"
	TransactionConflict  ErrorCode = "TRANSACTION_CONFLICT"
)

func (e ErrorCode) String() string {
	return string(e)
}

// Error is the error returned by program operations. It carries the http status
// used by the api layer and a stable error code clients can match on.
type Error struct {
	StatusCode int
	ErrorCode  ErrorCode
	Err        error
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return NewError(statusCode, errorCode, errors.New(msg))
}

func NewInternalServiceError(err error) *Error {
	return NewError(http.StatusInternalServerError, InternalServiceError, err)
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.ErrorCode.String()
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so errors.Is(err, types.ErrNotStaked) works
// regardless of the message attached.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.ErrorCode == t.ErrorCode
}

// Sentinels for errors.Is matching
var (
	ErrBadRequest         = &Error{StatusCode: http.StatusBadRequest, ErrorCode: BadRequest}
	ErrNotFound           = &Error{StatusCode: http.StatusNotFound, ErrorCode: NotFound}
	ErrUnauthorized       = &Error{StatusCode: http.StatusForbidden, ErrorCode: Unauthorized}
	ErrAlreadyStaked      = &Error{StatusCode: http.StatusConflict, ErrorCode: AlreadyStaked}
	ErrNotStaked          = &Error{StatusCode: http.StatusNotFound, ErrorCode: NotStaked}
	ErrStakeTooShort      = &Error{StatusCode: http.StatusBadRequest, ErrorCode: StakeTooShort}
	ErrNothingToClaim     = &Error{StatusCode: http.StatusBadRequest, ErrorCode: NothingToClaim}
	ErrArithmeticOverflow = &Error{StatusCode: http.StatusBadRequest, ErrorCode: ArithmeticOverflow}
	ErrMaxStakeReached    = &Error{StatusCode: http.StatusBadRequest, ErrorCode: MaxStakeReached}
	ErrAlreadyInitialized = &Error{StatusCode: http.StatusConflict, ErrorCode: AlreadyInitialized}
	ErrNotInitialized     = &Error{StatusCode: http.StatusPreconditionFailed, ErrorCode: NotInitialized}
	// transient store failure, safe to resubmit
	ErrTransactionConflict = &Error{StatusCode: http.StatusServiceUnavailable, ErrorCode: TransactionConflict}
)

// Wrap returns a copy of the sentinel carrying a message
func Wrap(sentinel *Error, format string, args ...any) *Error {
	return NewError(sentinel.StatusCode, sentinel.ErrorCode, fmt.Errorf(format, args...))
}

// CodeOf extracts the error code of err, falling back to InternalServiceError
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.ErrorCode
	}
	return InternalServiceError
}
