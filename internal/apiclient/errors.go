package apiclient

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure variants a call can produce
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindValidation
	KindNotFound
	KindDatabaseConnection
	KindDatabaseQuery
	KindInvalidParameter
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not-found"
	case KindDatabaseConnection:
		return "database-connection"
	case KindDatabaseQuery:
		return "database-query"
	case KindInvalidParameter:
		return "invalid-parameter"
	default:
		return "generic"
	}
}

// kindFromName maps the server's "error" field onto an ErrorKind
func kindFromName(name string) ErrorKind {
	switch name {
	case "ValidationError":
		return KindValidation
	case "ResourceNotFoundError":
		return KindNotFound
	case "DatabaseConnectionError":
		return KindDatabaseConnection
	case "DatabaseQueryError":
		return KindDatabaseQuery
	case "InvalidParameterError":
		return KindInvalidParameter
	default:
		return KindGeneric
	}
}

// NetworkErrorName is the Name of errors raised before any HTTP status was seen
const NetworkErrorName = "NetworkError"

// ErrorPayload is the structured error body the backend sends
type ErrorPayload struct {
	Error      string         `json:"error"`
	Message    string         `json:"message"`
	StatusCode int            `json:"status_code"`
	Details    map[string]any `json:"details,omitempty"`
	Path       string         `json:"path,omitempty"`
}

// APIError is returned for every expected failure of a Client call.
// StatusCode is 0 when the request never produced an HTTP response
// (network failure, cancellation, undecodable body).
type APIError struct {
	Kind       ErrorKind
	Name       string
	Message    string
	StatusCode int
	Details    map[string]any
	Path       string

	err error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.err
}

func newAPIError(p ErrorPayload) *APIError {
	return &APIError{
		Kind:       kindFromName(p.Error),
		Name:       p.Error,
		Message:    p.Message,
		StatusCode: p.StatusCode,
		Details:    p.Details,
		Path:       p.Path,
	}
}

func networkError(cause error) *APIError {
	return &APIError{
		Kind:    KindGeneric,
		Name:    NetworkErrorName,
		Message: fmt.Sprintf("network error: %v", cause),
		err:     cause,
	}
}

// AsAPIError unwraps err into an *APIError when possible
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a not-found APIError
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindNotFound
}

// IsNetwork reports whether err failed before any HTTP status was received
func IsNetwork(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == 0
}
