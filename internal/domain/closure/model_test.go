package closure

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/clinicbook/slotengine/pkg/civil"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func closure(start, end string, rec Recurrence) *ClosurePeriod {
	return &ClosurePeriod{
		ClinicID:   uuid.New(),
		StartDate:  date(start),
		EndDate:    date(end),
		Recurrence: rec,
		Active:     true,
	}
}

func TestClosurePeriod_Validate(t *testing.T) {
	assert.NoError(t, closure("2026-01-10", "2026-01-12", RecurrenceNone).Validate())

	c := closure("2026-01-10", "2026-01-12", "")
	assert.NoError(t, c.Validate())
	assert.Equal(t, RecurrenceNone, c.Recurrence, "empty recurrence defaults to none")

	assert.Error(t, closure("2026-01-12", "2026-01-10", RecurrenceNone).Validate())
	assert.Error(t, closure("2026-01-10", "2026-01-10", "daily").Validate())

	partial := closure("2026-01-10", "2026-01-10", RecurrenceNone)
	partial.StartTime = civil.NewTimeOfDay(14, 0).Ptr()
	assert.Error(t, partial.Validate(), "half a time range")
	partial.EndTime = civil.NewTimeOfDay(13, 0).Ptr()
	assert.Error(t, partial.Validate(), "inverted time range")

	noClinic := closure("2026-01-10", "2026-01-10", RecurrenceNone)
	noClinic.ClinicID = uuid.Nil
	assert.Error(t, noClinic.Validate())
}

func TestClosurePeriod_AppliesOn(t *testing.T) {
	tests := []struct {
		name    string
		c       *ClosurePeriod
		day     string
		applies bool
	}{
		{"single range first day", closure("2026-01-10", "2026-01-12", RecurrenceNone), "2026-01-10", true},
		{"single range last day", closure("2026-01-10", "2026-01-12", RecurrenceNone), "2026-01-12", true},
		{"single range before", closure("2026-01-10", "2026-01-12", RecurrenceNone), "2026-01-09", false},
		{"single range after", closure("2026-01-10", "2026-01-12", RecurrenceNone), "2026-01-13", false},

		{"yearly same year", closure("2025-12-25", "2025-12-25", RecurrenceYearly), "2025-12-25", true},
		{"yearly next year", closure("2025-12-25", "2025-12-25", RecurrenceYearly), "2026-12-25", true},
		{"yearly far future", closure("2025-12-25", "2025-12-25", RecurrenceYearly), "2040-12-25", true},
		{"yearly day before", closure("2025-12-25", "2025-12-25", RecurrenceYearly), "2026-12-24", false},
		{"yearly before first occurrence", closure("2025-12-25", "2025-12-25", RecurrenceYearly), "2024-12-25", false},
		{"yearly across new year", closure("2025-12-30", "2026-01-02", RecurrenceYearly), "2027-01-01", true},
		{"yearly across new year end", closure("2025-12-30", "2026-01-02", RecurrenceYearly), "2027-01-02", true},
		{"yearly across new year past end", closure("2025-12-30", "2026-01-02", RecurrenceYearly), "2027-01-03", false},
		{"yearly leap day in common year", closure("2024-02-29", "2024-02-29", RecurrenceYearly), "2025-02-28", true},

		{"monthly same day", closure("2026-01-15", "2026-01-16", RecurrenceMonthly), "2026-05-16", true},
		{"monthly other day", closure("2026-01-15", "2026-01-16", RecurrenceMonthly), "2026-05-17", false},
		{"monthly clamped to short month", closure("2026-01-31", "2026-01-31", RecurrenceMonthly), "2026-02-28", true},
		{"monthly long month", closure("2026-01-31", "2026-01-31", RecurrenceMonthly), "2026-03-31", true},
		{"monthly not the 30th", closure("2026-01-31", "2026-01-31", RecurrenceMonthly), "2026-03-30", false},
		{"monthly span into next month", closure("2026-01-30", "2026-02-02", RecurrenceMonthly), "2026-04-01", true},

		{"weekly next week", closure("2026-01-05", "2026-01-05", RecurrenceWeekly), "2026-01-12", true},
		{"weekly weeks later", closure("2026-01-05", "2026-01-05", RecurrenceWeekly), "2026-03-02", true},
		{"weekly other weekday", closure("2026-01-05", "2026-01-05", RecurrenceWeekly), "2026-01-13", false},
		{"weekly two day span", closure("2026-01-05", "2026-01-06", RecurrenceWeekly), "2026-01-13", true},
		{"weekly before start", closure("2026-01-05", "2026-01-05", RecurrenceWeekly), "2025-12-29", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.applies, tt.c.AppliesOn(date(tt.day)))
		})
	}
}

func TestClosurePeriod_Blocks(t *testing.T) {
	loc := time.UTC
	at := func(h, m int) time.Time { return time.Date(2026, 6, 10, h, m, 0, 0, loc) }

	full := closure("2026-06-10", "2026-06-10", RecurrenceNone)
	assert.True(t, full.Blocks(at(9, 0), at(9, 30), loc))

	partial := closure("2026-06-10", "2026-06-10", RecurrenceNone)
	partial.StartTime = civil.NewTimeOfDay(12, 0).Ptr()
	partial.EndTime = civil.NewTimeOfDay(14, 0).Ptr()
	assert.True(t, partial.Blocks(at(13, 30), at(14, 0), loc))
	assert.True(t, partial.Blocks(at(11, 30), at(12, 30), loc))
	assert.False(t, partial.Blocks(at(14, 0), at(14, 30), loc), "touching the end does not overlap")
	assert.False(t, partial.Blocks(at(11, 0), at(12, 0), loc), "touching the start does not overlap")

	partial.Active = false
	assert.False(t, partial.Blocks(at(13, 0), at(13, 30), loc))
}

func TestClosurePeriod_BlocksUsesClinicTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	c := closure("2026-12-25", "2026-12-25", RecurrenceYearly)
	// 03:00 UTC on Dec 26 is still Dec 25 in New York.
	start := time.Date(2026, 12, 26, 3, 0, 0, 0, time.UTC)
	assert.True(t, c.Blocks(start, start.Add(30*time.Minute), loc))
	assert.False(t, c.Blocks(start, start.Add(30*time.Minute), time.UTC))
}

func TestClosurePeriod_BlocksOnDSTChangeDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	at := func(h, m int) time.Time { return time.Date(2026, 3, 8, h, m, 0, 0, loc) }

	c := closure("2026-03-08", "2026-03-08", RecurrenceNone)
	c.StartTime = civil.NewTimeOfDay(14, 0).Ptr()
	c.EndTime = civil.NewTimeOfDay(15, 0).Ptr()

	assert.True(t, c.Blocks(at(14, 0), at(14, 30), loc))
	assert.True(t, c.Blocks(at(14, 30), at(15, 0), loc))
	assert.False(t, c.Blocks(at(13, 0), at(14, 0), loc))
	assert.False(t, c.Blocks(at(15, 0), at(15, 30), loc))
}
