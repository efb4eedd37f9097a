package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

const (
	NameNetworkError = "Network Error"
	NameAPIError     = "API Error"
	NameDecodeError  = "Decode Error"

	defaultAPIMessage = "An error occurred"
)

// CMSError is the only error shape returned by the content client.
type CMSError struct {
	Status  int             `json:"status"`
	Name    string          `json:"name"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *CMSError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Status, e.Message)
}

// Is lets callers match a CMSError against the package sentinels.
func (e *CMSError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnavailable:
		return e.Name == NameNetworkError || e.Status >= http.StatusInternalServerError
	}
	return false
}

// Transient reports whether repeating the request may succeed.
func (e *CMSError) Transient() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests || e.Status == http.StatusRequestTimeout
}

// AsCMSError extracts a CMSError from err, wrapping foreign errors as
// network errors so callers always get the one shape.
func AsCMSError(err error) *CMSError {
	if err == nil {
		return nil
	}
	var cmsErr *CMSError
	if errors.As(err, &cmsErr) {
		return cmsErr
	}
	return networkError(err)
}

func networkError(err error) *CMSError {
	msg := "Network error occurred"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &CMSError{Status: http.StatusInternalServerError, Name: NameNetworkError, Message: msg}
}

func decodeError(err error) *CMSError {
	return &CMSError{Status: http.StatusInternalServerError, Name: NameDecodeError, Message: err.Error()}
}

// errorEnvelope is the CMS error body: {"data":null,"error":{...}}.
type errorEnvelope struct {
	Error *struct {
		Status  int             `json:"status"`
		Name    string          `json:"name"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// apiError builds the CMSError for a non-2xx response, taking name, message
// and details from the body when the server supplied them.
func apiError(status int, body []byte) *CMSError {
	e := &CMSError{Status: status, Name: NameAPIError, Message: defaultAPIMessage}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return e
	}
	if env.Error.Name != "" {
		e.Name = env.Error.Name
	}
	if env.Error.Message != "" {
		e.Message = env.Error.Message
	}
	if len(env.Error.Details) > 0 && string(env.Error.Details) != "null" {
		e.Details = env.Error.Details
	}
	return e
}

var errEmptyUpload = errors.New("upload response contained no assets")
