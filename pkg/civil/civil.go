// Package civil provides calendar dates and wall-clock times of day that
// carry no time zone. Schedule rules and closures are expressed in these
// units and resolved against the clinic's location at evaluation time.
package civil

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Time returns midnight of d in UTC, the form stored in DATE columns.
func (d Date) Time() time.Time {
	return d.In(time.UTC)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// DaysSince returns the number of days from o to d (negative when d is before o).
func (d Date) DaysSince(o Date) int {
	return int(d.Time().Sub(o.Time()).Hours() / 24)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.DaysSince(o) < 0 }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.DaysSince(o) > 0 }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
// 24:00 (1440) is a valid end-of-day value.
type TimeOfDay int

const EndOfDay TimeOfDay = 24 * 60

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" (seconds are discarded).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	n, _ := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec)
	if n < 2 {
		return 0, fmt.Errorf("parse time of day %q: expected HH:MM", s)
	}
	t := NewTimeOfDay(h, m)
	if h < 0 || m < 0 || m > 59 || t > EndOfDay {
		return 0, fmt.Errorf("parse time of day %q: out of range", s)
	}
	return t, nil
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On returns the instant at which the wall clock in loc reads t on date d.
// A wall time skipped by a DST gap resolves as time.Date does.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, int(t)/60, int(t)%60, 0, 0, loc)
}

// WallMinutes returns the wall-clock reading of instant in loc as minutes
// counted from the start of d. Later days add 1440 per day, so the end of a
// window that finishes at local midnight reads 1440. Seconds are fractional.
func WallMinutes(instant time.Time, d Date, loc *time.Location) float64 {
	local := instant.In(loc)
	days := DateOf(local).DaysSince(d)
	return float64(days*24*60+local.Hour()*60+local.Minute()) +
		(float64(local.Second())+float64(local.Nanosecond())/1e9)/60
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Ptr returns a pointer to t; handy for optional break and closure times.
func (t TimeOfDay) Ptr() *TimeOfDay { return &t }
