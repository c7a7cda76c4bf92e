// Package timewindow encodes event occurrences as fixed-width digit strings
// (YYYYMMDD, HHMMSS) so that string order equals chronological order.
package timewindow

import (
	"time"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
)

const (
	DateLayout = "20060102"
	TimeLayout = "150405"

	// MaxRangeDays bounds BuildRange expansion
	MaxRangeDays = 366
)

// ValidDate reports whether s is exactly 8 digits forming a real calendar day
func ValidDate(s string) bool {
	return parses(s, DateLayout)
}

// ValidTime reports whether s is exactly 6 digits forming a clock time
func ValidTime(s string) bool {
	return parses(s, TimeLayout)
}

func parses(s, layout string) bool {
	if len(s) != len(layout) {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := time.Parse(layout, s)
	return err == nil
}

// Validate fails with ErrMalformedTimeWindow unless all three parts are well formed.
// StartTime is not required to precede EndTime.
func Validate(w models.TimeWindow) error {
	if !ValidDate(w.Date) || !ValidTime(w.StartTime) || !ValidTime(w.EndTime) {
		return apperr.ErrMalformedTimeWindow
	}
	return nil
}

// Encode returns the date and time strings of t in t's own location
func Encode(t time.Time) (string, string) {
	return t.Format(DateLayout), t.Format(TimeLayout)
}

// BuildRange expands the inclusive day range [start, end] into one window per
// calendar day, each with start's time of day as StartTime and end's as EndTime.
func BuildRange(start, end time.Time) ([]models.TimeWindow, error) {
	end = end.In(start.Location())
	startTime := start.Format(TimeLayout)
	endTime := end.Format(TimeLayout)

	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, start.Location())
	if last.Before(first) {
		return nil, apperr.Validation("end", "end must not be before start")
	}

	var windows []models.TimeWindow
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if len(windows) == MaxRangeDays {
			return nil, apperr.Validationf("end", "range must not exceed %d days", MaxRangeDays)
		}
		windows = append(windows, models.TimeWindow{
			Date:      day.Format(DateLayout),
			StartTime: startTime,
			EndTime:   endTime,
		})
	}
	return windows, nil
}

// Resolve picks the explicit windows when given, otherwise expands start/end.
// Supplying neither is a validation error.
func Resolve(explicit []models.TimeWindow, start, end *time.Time) ([]models.TimeWindow, error) {
	if len(explicit) > 0 {
		for _, w := range explicit {
			if err := Validate(w); err != nil {
				return nil, err
			}
		}
		return explicit, nil
	}
	if start == nil || end == nil {
		return nil, apperr.Validation("dates", "either dates or start and end are required")
	}
	return BuildRange(*start, *end)
}

// IsFinished is true iff every window's (date, end_time) is strictly before now
func IsFinished(e *models.Event, now time.Time) bool {
	date, clock := Encode(now)
	for _, w := range e.Dates {
		if w.Date > date || (w.Date == date && w.EndTime >= clock) {
			return false
		}
	}
	return true
}

// First returns the first stored window, used for first-window ordering
func First(e *models.Event) (models.TimeWindow, bool) {
	if len(e.Dates) == 0 {
		return models.TimeWindow{}, false
	}
	return e.Dates[0], true
}
