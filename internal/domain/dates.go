package domain

import "time"

// DateLayout is the ISO calendar date format used by the backend.
const DateLayout = "2006-01-02"

// CalendarDate returns the YYYY-MM-DD part of an ISO date or timestamp.
// Backend readings sometimes carry a time component ("2024-02-01T09:00:00");
// grouping is per calendar day.
func CalendarDate(s string) (string, bool) {
	if len(s) < len(DateLayout) {
		return "", false
	}
	day := s[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, day); err != nil {
		return "", false
	}
	return day, true
}

// ValidateStartDate returns ErrInvalidStartDate unless s is exactly YYYY-MM-DD.
func ValidateStartDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidStartDate
	}
	return nil
}

// LookbackStart returns the calendar date days before now, in UTC.
func LookbackStart(now time.Time, days int) string {
	return now.UTC().AddDate(0, 0, -days).Format(DateLayout)
}
