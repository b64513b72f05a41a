// Package timeslot holds the canonical time-of-day representation used by the
// scheduling code: minutes since midnight, in [0, 1440). Clock strings in
// either 24-hour ("14:30") or 12-hour ("2:30 PM") form are accepted at the
// boundary and normalized here; all arithmetic and comparisons happen on the
// integer form.
package timeslot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds the minutes-since-midnight range.
const MinutesPerDay = 24 * 60

// AppointmentDuration is the fixed length of an appointment in minutes.
const AppointmentDuration = 60

// Day is a day-of-week in the uppercase form availability slots are stored with.
type Day string

const (
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
	Saturday  Day = "SATURDAY"
	Sunday    Day = "SUNDAY"
)

// Days lists all valid days, Monday first.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDay validates a day-of-week string, accepting any casing.
func ParseDay(s string) (Day, error) {
	d := Day(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Days {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day of week: %q", s)
}

// DayOf derives the Day for a calendar date.
func DayOf(t time.Time) Day {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

var (
	clock24 = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)
	clock12 = regexp.MustCompile(`^(1[0-2]|0?[1-9]):([0-5][0-9])\s*(AM|PM)$`)
)

// ParseClock parses a wall-clock string in 24-hour ("09:00", "14:30") or
// 12-hour ("9:00 AM", "2:30 PM") form into minutes since midnight.
func ParseClock(s string) (int, error) {
	clean := strings.ToUpper(strings.TrimSpace(s))

	if m := clock24.FindStringSubmatch(clean); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return h*60 + min, nil
	}

	if m := clock12.FindStringSubmatch(clean); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		switch {
		case m[3] == "PM" && h != 12:
			h += 12
		case m[3] == "AM" && h == 12:
			h = 0
		}
		return h*60 + min, nil
	}

	return 0, fmt.Errorf("invalid time %q: use \"HH:MM\" or \"H:MM AM/PM\"", s)
}

// FormatClock renders minutes since midnight as a 24-hour "HH:MM" string.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Valid reports whether min is a representable time of day.
func Valid(min int) bool {
	return min >= 0 && min < MinutesPerDay
}

// Overlaps reports whether the half-open intervals [a0,a1) and [b0,b1)
// intersect.
func Overlaps(a0, a1, b0, b1 int) bool {
	return a0 < b1 && b0 < a1
}

// Within reports whether t lies inside the half-open window [start, end).
func Within(t, start, end int) bool {
	return t >= start && t < end
}

// At combines a calendar date with a minutes-since-midnight offset into a
// single instant in the date's location.
func At(date time.Time, min int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, min/60, min%60, 0, 0, date.Location())
}
