package models

import "time"

// DisplayDateLayout is the short date format used on unit rows.
const DisplayDateLayout = "01/02/06"

// EventDateLayout is the ISO date format used in move event text.
const EventDateLayout = "2006-01-02"

// MissingValue is shown in place of an unknown date or day count.
const MissingValue = "—"

// DateOf truncates t to midnight UTC of its calendar day in t's location.
// All unit dates and the reference "today" are stored this way so day
// arithmetic is exact.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr returns a pointer to the normalized date of t.
func DatePtr(t time.Time) *time.Time {
	d := DateOf(t)
	return &d
}

// DaysBetween returns later − earlier in whole days, or nil when either side is unknown.
func DaysBetween(later, earlier *time.Time) *int {
	if later == nil || earlier == nil {
		return nil
	}
	days := int(DateOf(*later).Sub(DateOf(*earlier)).Hours() / 24)
	return &days
}

// SameDay reports whether d falls on the same calendar day as day.
func SameDay(d *time.Time, day time.Time) bool {
	if d == nil {
		return false
	}
	return DateOf(*d).Equal(DateOf(day))
}

// FormatDate renders d with layout, or MissingValue when d is nil.
func FormatDate(d *time.Time, layout string) string {
	if d == nil {
		return MissingValue
	}
	return d.Format(layout)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
