package schedulerule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/slotengine/pkg/civil"
)

// ScheduleRule is a professional's recurring availability for one weekday.
type ScheduleRule struct {
	ID                     uuid.UUID        `json:"id"`
	ProfessionalID         uuid.UUID        `json:"professional_id"`
	Weekday                time.Weekday     `json:"weekday"`
	IsAvailable            bool             `json:"is_available"`
	StartTime              civil.TimeOfDay  `json:"start_time"`
	EndTime                civil.TimeOfDay  `json:"end_time"`
	BreakStart             *civil.TimeOfDay `json:"break_start,omitempty"`
	BreakEnd               *civil.TimeOfDay `json:"break_end,omitempty"`
	MinNoticeHours         int              `json:"min_notice_hours"`
	MaxAdvanceDays         int              `json:"max_advance_days"`
	BufferMinutes          int              `json:"buffer_minutes"`
	MaxAppointmentsPerHour int              `json:"max_appointments_per_hour"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// Validate checks the rule's structural invariants.
func (r *ScheduleRule) Validate() error {
	if r.ProfessionalID == uuid.Nil {
		return fmt.Errorf("professional_id is required")
	}
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	if r.StartTime < 0 || r.EndTime > civil.EndOfDay || r.StartTime >= r.EndTime {
		return fmt.Errorf("start_time must be before end_time")
	}
	if (r.BreakStart == nil) != (r.BreakEnd == nil) {
		return fmt.Errorf("break_start and break_end must be set together")
	}
	if r.HasBreak() {
		if *r.BreakStart < r.StartTime || *r.BreakStart >= *r.BreakEnd || *r.BreakEnd > r.EndTime {
			return fmt.Errorf("break must lie within working hours and start before it ends")
		}
	}
	if r.MinNoticeHours < 0 || r.MaxAdvanceDays < 0 || r.BufferMinutes < 0 || r.MaxAppointmentsPerHour < 0 {
		return fmt.Errorf("notice, advance, buffer and per-hour limits must not be negative")
	}
	return nil
}

// HasBreak reports whether a break window is configured.
func (r *ScheduleRule) HasBreak() bool {
	return r.BreakStart != nil && r.BreakEnd != nil
}

// Covers reports whether [start, end), in minutes since midnight, lies within
// working hours. Values outside 0..1440 are allowed so a buffered window
// spilling over midnight is rejected rather than wrapped.
func (r *ScheduleRule) Covers(start, end int) bool {
	return start >= r.StartTime.Minutes() && end <= r.EndTime.Minutes()
}

// OverlapsBreak reports whether [start, end) intersects the break.
func (r *ScheduleRule) OverlapsBreak(start, end int) bool {
	if !r.HasBreak() {
		return false
	}
	return start < r.BreakEnd.Minutes() && r.BreakStart.Minutes() < end
}
