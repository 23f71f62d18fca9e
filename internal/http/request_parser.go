// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of the comparison selection from query
// parameters.

package http

import (
	"net/url"
	"strconv"
	"strings"

	"tweetcompare/internal/core"
)

// Query parameter names of the comparison selection.
const (
	ParamYearA = "yearA"
	ParamYearB = "yearB"
	ParamMonth = "month"
)

// ParseComparisonParams reads yearA, yearB and month from query. Missing or
// non-numeric values fall back to defaults. Numeric values are kept as
// given, so an out of range month reaches validation.
func ParseComparisonParams(query url.Values, defaults core.ComparisonRequest) core.ComparisonRequest {
	req := defaults
	if v, ok := intParam(query, ParamYearA); ok {
		req.YearA = v
	}
	if v, ok := intParam(query, ParamYearB); ok {
		req.YearB = v
	}
	if v, ok := intParam(query, ParamMonth); ok {
		req.Month = v
	}
	return req
}

func intParam(query url.Values, name string) (int, bool) {
	v := strings.TrimSpace(sanitizeInput(query.Get(name)))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
