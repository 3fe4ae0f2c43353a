package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as the weatherApiErrorsTotal category label.
const (
	ErrorCategoryTimeout          ErrorCategory = "timeout"
	ErrorCategoryNetwork          ErrorCategory = "network"
	ErrorCategoryInvalidAPIKey    ErrorCategory = "invalid_api_key"
	ErrorCategoryLocationNotFound ErrorCategory = "location_not_found"
	ErrorCategoryRateLimited      ErrorCategory = "rate_limited"
	ErrorCategoryUpstream4xx      ErrorCategory = "upstream_4xx"
	ErrorCategoryUpstream5xx      ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing          ErrorCategory = "parsing"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// WeatherAPI.com error codes that get their own category.
const (
	providerCodeNoLocation    = 1006
	providerCodeKeyInvalid    = 2006
	providerCodeQuotaExceeded = 2007
	providerCodeKeyDisabled   = 2008
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) && e.Upstream() {
		return categorizeUpstream(e)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, errInvalidJSON) {
		return ErrorCategoryParsing
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return ErrorCategoryNetwork
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return ErrorCategoryNetwork
	}
	if strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "parse") || strings.Contains(errStr, "unmarshal") {
		return ErrorCategoryParsing
	}

	return ErrorCategoryUnknown
}

func categorizeUpstream(e *Error) ErrorCategory {
	switch e.ProviderCode {
	case providerCodeNoLocation:
		return ErrorCategoryLocationNotFound
	case providerCodeKeyInvalid, providerCodeKeyDisabled:
		return ErrorCategoryInvalidAPIKey
	case providerCodeQuotaExceeded:
		return ErrorCategoryRateLimited
	}

	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrorCategoryInvalidAPIKey
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrorCategoryRateLimited
	case e.StatusCode >= 500:
		return ErrorCategoryUpstream5xx
	default:
		return ErrorCategoryUpstream4xx
	}
}
