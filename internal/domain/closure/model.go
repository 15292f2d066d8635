package closure

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/slotengine/pkg/civil"
)

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceYearly  Recurrence = "yearly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceWeekly  Recurrence = "weekly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceYearly, RecurrenceMonthly, RecurrenceWeekly:
		return true
	}
	return false
}

// ClosurePeriod blocks bookings for a clinic, or for one professional when
// ProfessionalID is set. Without a time range it blocks whole days; with one,
// the range applies on every day the closure covers.
type ClosurePeriod struct {
	ID             uuid.UUID        `json:"id"`
	ClinicID       uuid.UUID        `json:"clinic_id"`
	ProfessionalID *uuid.UUID       `json:"professional_id,omitempty"`
	StartDate      civil.Date       `json:"start_date"`
	EndDate        civil.Date       `json:"end_date"`
	StartTime      *civil.TimeOfDay `json:"start_time,omitempty"`
	EndTime        *civil.TimeOfDay `json:"end_time,omitempty"`
	Recurrence     Recurrence       `json:"recurrence"`
	Active         bool             `json:"active"`
	Reason         string           `json:"reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (c *ClosurePeriod) Validate() error {
	if c.ClinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("start_date must not be after end_date")
	}
	if (c.StartTime == nil) != (c.EndTime == nil) {
		return fmt.Errorf("start_time and end_time must be set together")
	}
	if c.StartTime != nil && *c.StartTime >= *c.EndTime {
		return fmt.Errorf("start_time must be before end_time")
	}
	if c.Recurrence == "" {
		c.Recurrence = RecurrenceNone
	}
	if !c.Recurrence.Valid() {
		return fmt.Errorf("recurrence must be one of none, yearly, monthly, weekly")
	}
	return nil
}

// FullDay reports whether the closure blocks entire days.
func (c *ClosurePeriod) FullDay() bool {
	return c.StartTime == nil
}

// span is the number of days after an occurrence's first day that it still covers.
func (c *ClosurePeriod) span() int {
	return c.EndDate.DaysSince(c.StartDate)
}

// AppliesOn reports whether an occurrence of the closure covers d.
// Occurrences are computed on demand; recurring closures repeat from
// StartDate onward with the same length as the first occurrence.
func (c *ClosurePeriod) AppliesOn(d civil.Date) bool {
	if d.Before(c.StartDate) {
		return false
	}
	span := c.span()
	switch c.Recurrence {
	case RecurrenceWeekly:
		return d.DaysSince(c.StartDate)%7 <= span
	case RecurrenceMonthly:
		for back := 0; back <= span/28+1; back++ {
			y, m, _ := time.Date(d.Year, d.Month-time.Month(back), 1, 0, 0, 0, 0, time.UTC).Date()
			if c.coveredFrom(anchor(y, m, c.StartDate.Day), d, span) {
				return true
			}
		}
		return false
	case RecurrenceYearly:
		for back := 0; back <= span/365+1; back++ {
			if c.coveredFrom(anchor(d.Year-back, c.StartDate.Month, c.StartDate.Day), d, span) {
				return true
			}
		}
		return false
	default:
		return !d.After(c.EndDate)
	}
}

func (c *ClosurePeriod) coveredFrom(start, d civil.Date, span int) bool {
	if start.Before(c.StartDate) {
		return false
	}
	off := d.DaysSince(start)
	return off >= 0 && off <= span
}

// anchor builds year-month-day, clamping day to the month's length so a
// closure anchored on the 31st (or Feb 29) still recurs in shorter months.
func anchor(year int, month time.Month, day int) civil.Date {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// Blocks reports whether the closure blocks any part of [start, end) on the
// date the window starts, in loc.
func (c *ClosurePeriod) Blocks(start, end time.Time, loc *time.Location) bool {
	if !c.Active {
		return false
	}
	day := civil.DateOf(start.In(loc))
	if !c.AppliesOn(day) {
		return false
	}
	if c.FullDay() {
		return true
	}
	from := c.StartTime.On(day, loc)
	to := c.EndTime.On(day, loc)
	return start.Before(to) && from.Before(end)
}
