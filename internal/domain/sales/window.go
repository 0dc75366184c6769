package sales

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted in queries.
const DateLayout = "2006-01-02"

// Shift is a half-day partition of a calendar day.
type Shift string

const (
	// ShiftAll selects the whole day.
	ShiftAll Shift = ""
	// ShiftAM is [00:00, 12:00) local time.
	ShiftAM Shift = "AM"
	// ShiftPM is [12:00, 24:00) local time.
	ShiftPM Shift = "PM"
)

const midday = 12

// QueryError reports a malformed report query parameter.
type QueryError struct {
	Field   string
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseShift parses an optional shift name, case-insensitively.
func ParseShift(s string) (Shift, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return ShiftAll, nil
	case "AM":
		return ShiftAM, nil
	case "PM":
		return ShiftPM, nil
	default:
		return "", &QueryError{Field: "shift", Message: "shift must be AM or PM"}
	}
}

// Window is a half-open time range [From, To), optionally narrowed to one
// shift of every calendar day it covers.
type Window struct {
	From  time.Time
	To    time.Time
	Shift Shift

	loc *time.Location
}

// Contains reports whether t falls inside the window and its shift.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.From) || !t.Before(w.To) {
		return false
	}
	switch w.Shift {
	case ShiftAM:
		return t.In(w.location()).Hour() < midday
	case ShiftPM:
		return t.In(w.location()).Hour() >= midday
	default:
		return true
	}
}

// Location is the timezone calendar days are computed in.
func (w Window) Location() *time.Location { return w.location() }

func (w Window) location() *time.Location {
	if w.loc == nil {
		return time.UTC
	}
	return w.loc
}

func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, &QueryError{Field: field, Message: "date must use the YYYY-MM-DD format"}
	}
	return d, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayWindow builds the window of whole calendar days between startDate and
// endDate inclusive. An empty date means the day containing now.
func DayWindow(startDate, endDate string, shift Shift, loc *time.Location, now time.Time) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now, loc)

	from, to := today, today
	var err error
	if startDate != "" {
		if from, err = parseDate("startDate", startDate, loc); err != nil {
			return Window{}, err
		}
	}
	if endDate != "" {
		if to, err = parseDate("endDate", endDate, loc); err != nil {
			return Window{}, err
		}
	}
	if from.After(to) {
		return Window{}, &QueryError{Field: "startDate", Message: "startDate must not be after endDate"}
	}
	return Window{From: from, To: to.AddDate(0, 0, 1), Shift: shift, loc: loc}, nil
}

// TrailingWindow builds a window ending at now and starting days earlier.
// Explicit dates replace either bound with the matching whole calendar day.
func TrailingWindow(startDate, endDate string, days int, loc *time.Location, now time.Time) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	w := Window{From: now.AddDate(0, 0, -days), To: now, loc: loc}
	if startDate != "" {
		from, err := parseDate("startDate", startDate, loc)
		if err != nil {
			return Window{}, err
		}
		w.From = from
	}
	if endDate != "" {
		to, err := parseDate("endDate", endDate, loc)
		if err != nil {
			return Window{}, err
		}
		w.To = to.AddDate(0, 0, 1)
	}
	if !w.From.Before(w.To) {
		return Window{}, &QueryError{Field: "startDate", Message: "startDate must not be after endDate"}
	}
	return w, nil
}
