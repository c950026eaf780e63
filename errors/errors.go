// Package errors provides an API for errors across the application.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failed settings request.
type Kind int

const (
	Network Kind = iota
	ServerError
	ParseError
)

func (k Kind) String() string {
	return [...]string{"network", "server", "parse"}[k]
}

// RequestError is returned by every settings endpoint call that does not
// complete with a 2xx status and a valid JSON body.
type RequestError struct {
	Kind       Kind
	StatusCode int         // Set for ServerError (and ParseError when a response was received)
	Detail     interface{} // Parsed JSON error body sent by the server, if any
	Err        error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case ServerError:
		if e.Detail != nil {
			return fmt.Sprintf("settings endpoint responded with status %d: %v", e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("settings endpoint responded with status %d", e.StatusCode)
	default:
		if e.Err == nil {
			return fmt.Sprintf("%s error", e.Kind)
		}
		return fmt.Sprintf("%s error: %s", e.Kind, e.Err)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err wraps a RequestError of the given kind.
func IsKind(err error, kind Kind) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind == kind
	}
	return false
}
