package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches 401 responses and responses whose message says
	// the bearer token was rejected.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// tokenRejected lists the phrases the API uses when the bearer header is
// missing, malformed or expired.
var tokenRejected = []string{
	"invalid token",
	"token invalid",
	"token is invalid",
	"token expired",
	"jwt expired",
	"jwt malformed",
	"no token provided",
}

// APIError is a response with a status of 400 or above.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: %s", e.Status)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || IsTokenRejected(e.Message)
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsTokenRejected reports whether a message says the credential was refused.
func IsTokenRejected(message string) bool {
	m := strings.ToLower(message)
	for _, phrase := range tokenRejected {
		if strings.Contains(m, phrase) {
			return true
		}
	}
	return false
}

func parseAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
		if len(payload.Error) > 0 {
			var s string
			if json.Unmarshal(payload.Error, &s) == nil && s != "" {
				apiErr.Message = s
			} else {
				var nested struct {
					Message string `json:"message"`
				}
				if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
					apiErr.Message = nested.Message
				}
			}
		}
		return apiErr
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		apiErr.Message = text
	}
	return apiErr
}

// UserMessage returns the text shown to an admin for a failed call: the
// API's own message when it sent one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	var msgErr interface{ UserMessage() string }
	if errors.As(err, &msgErr) {
		if m := msgErr.UserMessage(); m != "" {
			return m
		}
	}
	return fallback
}
