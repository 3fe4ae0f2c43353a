package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Forecast day bounds accepted by the weather provider.
const (
	MinForecastDays     = 1
	MaxForecastDays     = 10
	DefaultForecastDays = 3
)

// ErrQueryEmpty is returned when a required query parameter is missing, empty or whitespace-only.
var ErrQueryEmpty = errors.New("must not be empty")

// ErrDaysNotInteger is returned when days is present but not a base-10 integer.
var ErrDaysNotInteger = errors.New("must be an integer")

// ErrDaysOutOfRange is returned when days falls outside [MinForecastDays, MaxForecastDays].
var ErrDaysOutOfRange = fmt.Errorf("must be between %d and %d", MinForecastDays, MaxForecastDays)

// Error names the offending query parameter. Message is suitable for a 400 response body.
type Error struct {
	Param string
	Err   error
}

func (e *Error) Error() string {
	return e.Param + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RequireQuery checks that a required free-form parameter carries a value. The value itself is
// opaque (city, "lat,lon", IP, autocomplete id) and is returned untouched for forwarding.
func RequireQuery(param, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", &Error{Param: param, Err: ErrQueryEmpty}
	}
	return value, nil
}

// ParseDays parses the optional days parameter. An absent or empty value yields
// DefaultForecastDays.
func ParseDays(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultForecastDays, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &Error{Param: "days", Err: ErrDaysNotInteger}
	}
	if n < MinForecastDays || n > MaxForecastDays {
		return 0, &Error{Param: "days", Err: ErrDaysOutOfRange}
	}
	return n, nil
}
