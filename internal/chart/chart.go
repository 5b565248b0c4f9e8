// Package chart looks up the top-ranked song on a music chart for a
// given date, with a curated fallback for dates before the chart
// provider's coverage begins.
package chart

import "errors"

// DefaultChart is the chart consulted when a request names none.
const DefaultChart = "hot-100"

// CoverageStartYear is the first year the canonical chart has data for.
const CoverageStartYear = 1952

// Sentinel errors.
var (
	// ErrChartUnavailable is returned when the provider has no data
	// for the requested date or chart.
	ErrChartUnavailable = errors.New("no chart data found")

	// ErrProvider is returned on transport or decoding failure.
	ErrProvider = errors.New("chart provider error")
)

// Entry is one ranked song on a chart for a date.
type Entry struct {
	Title        string
	Artist       string
	WeeksOnChart int
}
