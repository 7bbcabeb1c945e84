package mailer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors returned by the SDK.
var (
	// ErrUnauthorized is returned when the API key is missing or wrong.
	ErrUnauthorized = errors.New("mailer: unauthorized")

	// ErrNotFound is returned by Unsubscribe when the token matches nobody,
	// including a recipient that already unsubscribed.
	ErrNotFound = errors.New("mailer: not found or already removed")
)

// APIError represents an error response from the mailer API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailer: API error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// apiErrorWrapper matches the API error envelope.
type apiErrorWrapper struct {
	Error *APIError `json:"error"`
}

// flatError matches the unsubscribe endpoint's flat error body.
type flatError struct {
	Error string `json:"error"`
}

func parseAPIError(statusCode int, body []byte) error {
	var wrapper apiErrorWrapper
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error != nil && wrapper.Error.Code != "" {
		wrapper.Error.StatusCode = statusCode
		return wrapper.Error
	}

	var flat flatError
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return &APIError{StatusCode: statusCode, Code: "unknown", Message: flat.Error}
	}

	return &APIError{
		StatusCode: statusCode,
		Code:       "unknown",
		Message:    string(body),
	}
}

// IsAPIError checks whether err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
