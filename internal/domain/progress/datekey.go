// Package progress holds the metric values a user recorded, keyed by calendar date.
package progress

import (
	"fmt"
	"time"
)

// DateKeyLayout is the canonical YYYY-MM-DD layout.
const DateKeyLayout = "2006-01-02"

// DateKey identifies one calendar day.
type DateKey string

// ParseDateKey validates s and returns it as a DateKey.
func ParseDateKey(s string) (DateKey, error) {
	if _, err := time.Parse(DateKeyLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateKey(s), nil
}

// DateKeyOf returns the calendar date of t in loc. A nil loc uses t's own
// location.
func DateKeyOf(t time.Time, loc *time.Location) DateKey {
	if loc != nil {
		t = t.In(loc)
	}
	return DateKey(t.Format(DateKeyLayout))
}

// Time returns midnight of the date in loc (UTC when loc is nil).
func (d DateKey) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateKeyLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, string(d))
	}
	return t, nil
}

// AddDays shifts the date by n calendar days.
func (d DateKey) AddDays(n int) (DateKey, error) {
	t, err := d.Time(time.UTC)
	if err != nil {
		return "", err
	}
	return DateKey(t.AddDate(0, 0, n).Format(DateKeyLayout)), nil
}

// Valid reports whether d is a real calendar date in canonical form.
func (d DateKey) Valid() bool {
	_, err := time.Parse(DateKeyLayout, string(d))
	return err == nil
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Today returns the local calendar date in loc, read from clock.
func Today(clock Clock, loc *time.Location) DateKey {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.Local
	}
	return DateKeyOf(clock.Now(), loc)
}
