// Package utils provides small, generic helper functions used across
// different layers of the application. This file covers pagination
// query-parameter parsing.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int and falls back to def when s
// is empty or not a valid integer. Handlers use it for the page and
// page_size query parameters, where a bad value should not fail the
// request.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
