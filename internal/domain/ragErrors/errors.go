package ragErrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	InvalidInput    Kind = "InvalidInput"
	ProviderError   Kind = "ProviderError"
	StoreError      Kind = "StoreError"
	CacheError      Kind = "CacheError"
	UnsupportedType Kind = "UnsupportedType"
	Unknown         Kind = "Unknown"
)

// Error carries a Kind so the transport layer can pick a status without looking at the message.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in the chain, Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case InvalidInput:
		return http.StatusBadRequest
	case UnsupportedType:
		return http.StatusUnsupportedMediaType
	case ProviderError:
		return http.StatusBadGateway
	case StoreError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
