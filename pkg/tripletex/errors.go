package tripletex

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTooManyPages is returned when a listing does not end within the page cap.
var ErrTooManyPages = errors.New("pagination did not finish within page limit")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tripletex API error: %s %s (status %d): %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("tripletex API error: %s %s (status %d): %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsTransient reports whether err is a timeout or a gateway timeout.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusGatewayTimeout
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
