package strava

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the remote resource does not exist (404).
	ErrNotFound = errors.New("strava: not found")
	// ErrUnauthorized indicates the credential is invalid or expired (401).
	ErrUnauthorized = errors.New("strava: unauthorized")
	// ErrRateLimited indicates the quota was exceeded despite throttling (429).
	ErrRateLimited = errors.New("strava: rate limited")
	// ErrValidation indicates a response item did not match the expected shape.
	ErrValidation = errors.New("strava: invalid response shape")
)

// APIError is a classified remote failure. It unwraps to one of the
// sentinel kinds above (nil Kind for generic 4xx/5xx), so callers use
// errors.Is for dispatch and the struct for details.
type APIError struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *APIError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%v: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("strava: api error: %s (status %d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Kind }

// classifyStatus maps an HTTP status and raw body to the error taxonomy.
// 2xx returns nil.
func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := remoteMessage(body)
	var kind error
	switch status {
	case 404:
		kind = ErrNotFound
	case 401:
		kind = ErrUnauthorized
	case 429:
		kind = ErrRateLimited
	}
	return &APIError{StatusCode: status, Message: msg, Kind: kind}
}

// remoteMessage extracts Strava's "message" field when the body is JSON,
// falling back to the raw text.
func remoteMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
