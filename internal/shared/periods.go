package shared

import (
	"errors"
	"time"
)

// MinReportYear bounds how far back reporting periods may reach.
const MinReportYear = 2020

// ErrInvalidPeriod indicates a month/year outside the supported range.
var ErrInvalidPeriod = errors.New("period invalid")

// ValidatePeriod checks that month and year form a reportable period.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return ErrInvalidPeriod
	}
	if year < MinReportYear {
		return ErrInvalidPeriod
	}
	return nil
}

// MonthBounds returns the half-open interval [start, end) covering the
// calendar month in the given location.
func MonthBounds(month, year int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
