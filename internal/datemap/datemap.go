// Package datemap converts percentages into dates in the 1900s.
package datemap

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidPercentage is returned for inputs outside [0, 100].
var ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")

// Date maps a percentage in [0, 100] onto a calendar date between
// 1900-01-01 and 2000-12-31. The whole part selects the year
// (1900 + offset) and the fractional part selects how far through
// that year the date falls, scaled by the year's actual length.
// 100 maps to exactly 2000-01-01.
func Date(percentage float64) (time.Time, error) {
	if percentage < 0 || percentage > 100 {
		return time.Time{}, ErrInvalidPercentage
	}

	yearOffset := int(math.Floor(percentage))
	fractional := percentage - float64(yearOffset)
	year := 1900 + yearOffset

	dayOffset := int(math.Floor(float64(daysInYear(year)) * fractional))

	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return jan1.AddDate(0, 0, dayOffset), nil
}

func daysInYear(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}
