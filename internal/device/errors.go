package device

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed API exchange. The controller reports logical
// failures as `success:false` bodies (often with HTTP 200), so callers must
// branch on the kind, not on the HTTP status.
type ErrorKind int

const (
	// KindNetwork covers transport failures: refused, timeout, offline.
	KindNetwork ErrorKind = iota
	// KindHTTPStatus covers non-2xx responses without a decodable action body.
	KindHTTPStatus
	// KindMalformed covers undecodable or incomplete JSON payloads.
	KindMalformed
	// KindApplication covers a decoded `success:false` rejection.
	KindApplication
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	case KindMalformed:
		return "malformed"
	case KindApplication:
		return "application"
	}
	return "unknown"
}

// APIError is the typed result of a failed exchange with the controller.
type APIError struct {
	Kind     ErrorKind
	Endpoint string
	Status   int    // HTTP status, when one was received
	Message  string // device-supplied error text for application errors
	Err      error  // underlying transport or decode error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindApplication:
		return fmt.Sprintf("%s: device rejected request: %s", e.Endpoint, e.Message)
	case KindHTTPStatus:
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Status)
	case KindMalformed:
		return fmt.Sprintf("%s: malformed response: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Endpoint, e.Err)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Kind extracts the error kind, defaulting to KindNetwork for errors that
// did not originate in this package.
func Kind(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// Retryable reports whether retrying the same request could plausibly
// succeed. Logical rejections and decode failures never are; a 5xx usually
// means the controller hiccuped mid-request.
func Retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindNetwork:
		return true
	case KindHTTPStatus:
		return apiErr.Status >= 500
	}
	return false
}
