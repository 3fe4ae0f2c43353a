package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMissingAPIKey is returned by NewWeatherAPIClient when no credential is configured.
	ErrMissingAPIKey = errors.New("weather API key is required")

	// ErrUpstreamStatus is wrapped by every *Error built from a non-2xx provider response.
	ErrUpstreamStatus = errors.New("weather provider returned error status")

	errInvalidJSON = errors.New("invalid JSON in provider response")
)

// maxRawErrorText bounds how much of an unparseable upstream error body is echoed to callers.
const maxRawErrorText = 512

// Error is the uniform failure shape of every provider operation. StatusCode is the provider's
// status for upstream-reported errors and 500 for relay-internal ones.
type Error struct {
	Op         Operation
	StatusCode int
	Message    string
	// ProviderCode is WeatherAPI.com's numeric error code (e.g. 1006 no location found), 0 if absent.
	ProviderCode int
	Err          error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Upstream reports whether the provider answered with an error status, as opposed to the relay
// failing to complete the call.
func (e *Error) Upstream() bool {
	return errors.Is(e.Err, ErrUpstreamStatus)
}

// providerErrorBody is the documented WeatherAPI.com error envelope.
type providerErrorBody struct {
	Error *struct {
		Code    int             `json:"code"`
		Message json.RawMessage `json:"message"`
	} `json:"error"`
}

func upstreamError(op Operation, status int, body []byte) *Error {
	e := &Error{
		Op:         op,
		StatusCode: status,
		Err:        fmt.Errorf("%w: HTTP %d", ErrUpstreamStatus, status),
	}

	var parsed providerErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		e.ProviderCode = parsed.Error.Code
		var msg string
		if json.Unmarshal(parsed.Error.Message, &msg) == nil && msg != "" {
			e.Message = msg
			return e
		}
	}

	e.Message = fallbackMessage(status, body)
	return e
}

func fallbackMessage(status int, body []byte) string {
	msg := fmt.Sprintf("weather provider returned HTTP %d %s", status, http.StatusText(status))
	text := strings.ToValidUTF8(strings.TrimSpace(string(body)), "\uFFFD")
	if text == "" {
		return strings.TrimSpace(msg)
	}
	if len(text) > maxRawErrorText {
		n := maxRawErrorText
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n] + "..."
	}
	return strings.TrimSpace(msg) + ": " + text
}

func internalError(op Operation, cause error) *Error {
	return &Error{
		Op:         op,
		StatusCode: http.StatusInternalServerError,
		Message:    fmt.Sprintf("%s: %v", op.failurePrefix(), cause),
		Err:        cause,
	}
}
