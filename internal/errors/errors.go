package errors

import (
	stderrors "errors"
	"net/http"
)

type HTTPError interface {
	error
	StatusCode() int
}

type apiError struct {
	msg  string
	code int
}

func (e *apiError) Error() string   { return e.msg }
func (e *apiError) StatusCode() int { return e.code }

var (
	ErrInvalidNetwork   = &apiError{msg: "unsupported network", code: http.StatusNotImplemented}
	ErrConnectionFailed = &apiError{msg: "ledger unreachable", code: http.StatusServiceUnavailable}
	ErrNotConnected     = &apiError{msg: "not connected to ledger", code: http.StatusInternalServerError}
	ErrInvalidSubnet    = &apiError{msg: "invalid netuid", code: http.StatusBadRequest}
	ErrQueryFailed      = &apiError{msg: "ledger query failed", code: http.StatusBadGateway}

	ErrInvalidHotkey = &apiError{msg: "invalid hotkey", code: http.StatusBadRequest}
	ErrUnauthorized  = &apiError{msg: "invalid authentication credentials", code: http.StatusUnauthorized}
	ErrInternal      = &apiError{msg: "internal error", code: http.StatusInternalServerError}
)

// wrappedError ties an underlying cause to one of the sentinels above.
// The public message stays the sentinel's; the cause is only visible
// through Unwrap and Detail.
type wrappedError struct {
	kind  *apiError
	cause error
}

func (e *wrappedError) Error() string {
	if e.cause == nil {
		return e.kind.msg
	}
	return e.kind.msg + ": " + e.cause.Error()
}

func (e *wrappedError) StatusCode() int { return e.kind.code }
func (e *wrappedError) Unwrap() error   { return e.cause }

func (e *wrappedError) Is(target error) bool {
	k, ok := target.(*apiError)
	return ok && k == e.kind
}

// Public is the message safe to hand back to an API client.
func (e *wrappedError) Public() string { return e.kind.msg }

// Wrap attaches cause to kind. errors.Is(err, kind) keeps matching.
func Wrap(kind error, cause error) error {
	k, ok := kind.(*apiError)
	if !ok {
		return cause
	}
	return &wrappedError{kind: k, cause: cause}
}

// PublicMessage returns the client facing message for err, falling back to
// the generic internal error for anything outside the taxonomy.
func PublicMessage(err error) (string, int) {
	var we *wrappedError
	if stderrors.As(err, &we) {
		return we.Public(), we.StatusCode()
	}
	var he HTTPError
	if stderrors.As(err, &he) {
		return he.Error(), he.StatusCode()
	}
	return ErrInternal.msg, ErrInternal.code
}
