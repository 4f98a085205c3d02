// Package utils provides small, generic helper functions used across
// different layers of the application. This file contains calendar-date
// parsing for query parameters.
package utils

import "time"

// ParseDate parses an optional YYYY-MM-DD query value. An empty string
// returns (nil, nil); a malformed value returns the parse error.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
