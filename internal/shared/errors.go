package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrDocumentNotFound   = fmt.Errorf("document not found")
	ErrPlanNotFound       = fmt.Errorf("subscription plan not found")
	ErrBatchNotFound      = fmt.Errorf("upload batch not found")
	ErrActiveDocument     = fmt.Errorf("cannot edit active document, create a new version instead")

	// Upload errors
	ErrEmptySelection    = fmt.Errorf("no files selected")
	ErrInvalidTransition = fmt.Errorf("invalid upload state transition")
	ErrUploadCanceled    = fmt.Errorf("upload canceled")
	ErrUploadFailed      = fmt.Errorf("upload failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// APIError is a non-success response from the admin API.
//
// Message holds the server-supplied message (the JSON "message" field) when there was one.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%v (%d): %s", ErrAPIRequest, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%v (%d): %v", ErrAPIRequest, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%v (%d): %s", ErrAPIRequest, e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// Unwrap lets [errors.Is] match both [ErrAPIRequest] and the underlying cause.
func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAPIRequest, e.Err}
	}
	return []error{ErrAPIRequest}
}

// AsAPIError reports whether err wraps an [APIError] and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
