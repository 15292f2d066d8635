package slot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Slot is a bookable unit of one professional's time for one service.
// Reservation state (HeldBy, HeldUntil) lives on the row and every change
// to it bumps Version.
type Slot struct {
	ID              uuid.UUID  `json:"id"`
	ProfessionalID  uuid.UUID  `json:"professional_id"`
	ServiceID       uuid.UUID  `json:"service_id"`
	ClinicID        uuid.UUID  `json:"clinic_id"`
	StartAt         time.Time  `json:"start_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Available       bool       `json:"available"`
	Version         int        `json:"version"`
	Generation      int        `json:"generation"`
	HeldBy          *string    `json:"held_by,omitempty"`
	HeldUntil       *time.Time `json:"held_until,omitempty"`
	AppointmentID   *uuid.UUID `json:"appointment_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (s *Slot) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s *Slot) EndAt() time.Time {
	return s.StartAt.Add(s.Duration())
}

// IsHeld reports whether a hold exists that has not lapsed at now.
func (s *Slot) IsHeld(now time.Time) bool {
	return s.HeldUntil != nil && !s.HeldUntil.Before(now)
}

// HoldLapsed reports whether a hold exists whose expiry is before now.
func (s *Slot) HoldLapsed(now time.Time) bool {
	return s.HeldUntil != nil && s.HeldUntil.Before(now)
}

// HeldByClient reports whether clientID owns the current hold, lapsed or not.
func (s *Slot) HeldByClient(clientID string) bool {
	return s.HeldBy != nil && *s.HeldBy == clientID
}

// Occupied reports whether the slot counts against capacity at now.
func (s *Slot) Occupied(now time.Time) bool {
	return !s.Available || s.IsHeld(now)
}

func (s *Slot) ClearHold() {
	s.HeldBy = nil
	s.HeldUntil = nil
}

func (s *Slot) SetHold(clientID string, until time.Time) {
	s.HeldBy = &clientID
	s.HeldUntil = &until
}

// Overlaps reports whether the slot's time range intersects [from, to).
func (s *Slot) Overlaps(from, to time.Time) bool {
	return s.StartAt.Before(to) && from.Before(s.EndAt())
}

func (s *Slot) Validate() error {
	if s.ProfessionalID == uuid.Nil || s.ServiceID == uuid.Nil || s.ClinicID == uuid.Nil {
		return fmt.Errorf("professional_id, service_id and clinic_id are required")
	}
	if s.StartAt.IsZero() {
		return fmt.Errorf("start_at is required")
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	if (s.HeldBy == nil) != (s.HeldUntil == nil) {
		return fmt.Errorf("held_by and held_until must be set together")
	}
	if !s.Available && s.AppointmentID == nil {
		return fmt.Errorf("an unavailable slot must reference an appointment")
	}
	return nil
}

// Summary is the public listing form of a slot.
type Summary struct {
	ID              uuid.UUID `json:"id"`
	ProfessionalID  uuid.UUID `json:"professional_id"`
	ServiceID       uuid.UUID `json:"service_id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Version         int       `json:"version"`
	Bookable        *bool     `json:"bookable,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}

func (s *Slot) Summary() Summary {
	return Summary{
		ID:              s.ID,
		ProfessionalID:  s.ProfessionalID,
		ServiceID:       s.ServiceID,
		ClinicID:        s.ClinicID,
		StartAt:         s.StartAt,
		EndAt:           s.EndAt(),
		DurationMinutes: s.DurationMinutes,
		Version:         s.Version,
	}
}
