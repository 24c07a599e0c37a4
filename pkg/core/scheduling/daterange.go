package scheduling

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// ShiftDay is one calendar day of a scenario's date range.
type ShiftDay struct {
	Date    time.Time
	Weekend bool
}

// ExpandDateRange returns the inclusive day sequence between start and end,
// classified as weekday or weekend. Dates are normalized to midnight UTC.
func ExpandDateRange(start, end time.Time) ([]ShiftDay, error) {
	start = Midnight(start)
	end = Midnight(end)

	if end.Before(start) {
		return nil, fmt.Errorf("start date %s is after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build date range rule: %w", err)
	}

	dates := rule.All()
	days := make([]ShiftDay, len(dates))
	for i, d := range dates {
		days[i] = ShiftDay{Date: d, Weekend: IsWeekend(d)}
	}

	return days, nil
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Midnight truncates a timestamp to its calendar date at midnight UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
