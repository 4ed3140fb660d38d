package validation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// dateRegex is a regular expression that matches dates in YYYY-MM-DD format.
var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const (
	// MinTopN and MaxTopN bound the product ranking slider.
	MinTopN     = 5
	MaxTopN     = 20
	DefaultTopN = 10
)

// ParseDate checks that a date string is in YYYY-MM-DD format and returns it.
func ParseDate(date string) (time.Time, error) {
	if !dateRegex.MatchString(date) {
		return time.Time{}, fmt.Errorf("invalid date format: %s, expected YYYY-MM-DD", date)
	}

	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %w", err)
	}
	return parsed, nil
}

// ValidateDateRange parses an optional from/to pair. Empty values yield a zero
// time, meaning "unbounded" on that side.
func ValidateDateRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = ParseDate(from); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if to != "" {
		if end, err = ParseDate(to); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s", from, to)
	}
	return start, end, nil
}

// ParseTopN validates the number of products to display. An empty value
// returns DefaultTopN.
func ParseTopN(raw string) (int, error) {
	if raw == "" {
		return DefaultTopN, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number of products: %q", raw)
	}
	if n < MinTopN || n > MaxTopN {
		return 0, fmt.Errorf("number of products must be between %d and %d", MinTopN, MaxTopN)
	}
	return n, nil
}

// WriteError writes a validation error response to the HTTP response writer.
// It takes a response writer, error message, and HTTP status code.
func WriteError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	}); err != nil {
		slog.Error("Failed to encode error response", slog.Any("error", err))
	}
}
