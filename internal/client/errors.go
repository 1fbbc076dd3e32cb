package client

import (
	"errors"
	"fmt"
)

// NetworkError is a transport failure: the backend could not be reached or the
// connection dropped before a reply was read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return "無法連接到服務器，請檢查後端服務是否運行"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Detail includes the underlying transport error, for logs
func (e *NetworkError) Detail() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// HTTPError is a non-2xx reply
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// APIError is a 2xx reply with success=false
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "操作失敗"
}

// Message returns the user-facing text for err
func Message(err error) string {
	if err == nil {
		return ""
	}

	var netErr *NetworkError
	var httpErr *HTTPError
	var apiErr *APIError
	switch {
	case errors.As(err, &netErr):
		return netErr.Error()
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return err.Error()
	}
}

// IsNotFound reports whether err is a 404 reply
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == 404
}
