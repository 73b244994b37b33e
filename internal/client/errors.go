package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrUnauthorized is matched by APIErrors with status 401 or 403.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDecode wraps 2xx responses whose body does not match the expected shape.
	ErrDecode = errors.New("failed to decode response")

	// ErrForeignOrigin is returned for absolute links outside the server URL.
	ErrForeignOrigin = errors.New("link points to another origin")
)

// APIError is a non-2xx response. The body of API errors has the shape
// {"timestamp": ..., "message": ..., "description": ..., "payload": ...}.
type APIError struct {
	StatusCode  int             `json:"-"`
	Timestamp   time.Time       `json:"timestamp"`
	Message     string          `json:"message"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is(err, ErrUnauthorized) match authentication and permission failures.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	// Bodies that aren't the error shape still produce a useful error.
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Message = string(body)
	}
	apiErr.StatusCode = resp.StatusCode

	return apiErr
}
