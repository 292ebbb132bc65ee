package mangadexapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrConfig is returned when required credentials are missing. It is never retried.
	ErrConfig = errors.New("missing configuration")
	// ErrAuth is returned when a token exchange is rejected by the auth server.
	ErrAuth = errors.New("authentication failed")
	// ErrNoToken is returned when an authorized call is made before any access token was stored.
	ErrNoToken = errors.New("no access token found")
	// ErrNoRefreshToken is returned by Refresh when no refresh token was stored.
	ErrNoRefreshToken = errors.New("no refresh token found")
	// ErrInvalidRequest marks caller-side violations rejected before any network call.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrFetch is returned when a data endpoint answers with a non-success status or an error result.
	ErrFetch = errors.New("fetch failed")
)

// APIError describes a failed exchange with the API or the auth server.
type APIError struct {
	// Op names the logical operation, e.g. "get manga feed".
	Op string

	// StatusCode is the HTTP status of the response, or 0 when the failure
	// was detected in the payload of a successful response.
	StatusCode int

	// Message is the server-provided detail, if any.
	Message string

	// Err is one of ErrAuth or ErrFetch.
	Err error
}

func (e *APIError) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}

	b.WriteString(e.Err.Error())

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}

	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status code: %d)", e.StatusCode)
	}

	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func missingConfig(fields []string) error {
	return fmt.Errorf("%w: missing %s", ErrConfig, strings.Join(fields, ", "))
}

// errorMessage extracts a human readable message from an API or auth error body.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"errors.0.detail", "errors.0.title", "error_description", "error"} {
			if msg := gjson.GetBytes(body, path).String(); msg != "" {
				return msg
			}
		}
	}

	if status == http.StatusOK {
		return "result=error with no error details"
	}
	return http.StatusText(status)
}
