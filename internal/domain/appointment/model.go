package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Appointment is the durable record of a confirmed reservation. It pins
// the slot generation it consumed so a re-opened slot can be booked again.
type Appointment struct {
	ID                 uuid.UUID  `json:"id"`
	SlotID             uuid.UUID  `json:"slot_id"`
	SlotGeneration     int        `json:"slot_generation"`
	ProfessionalID     uuid.UUID  `json:"professional_id"`
	ServiceID          uuid.UUID  `json:"service_id"`
	ClinicID           uuid.UUID  `json:"clinic_id"`
	ClientID           string     `json:"client_id"`
	PatientID          *uuid.UUID `json:"patient_id,omitempty"`
	Reason             string     `json:"reason,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	Status             Status     `json:"status"`
	StartAt            time.Time  `json:"start_at"`
	EndAt              time.Time  `json:"end_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Payload carries the caller-supplied details of a booking.
type Payload struct {
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

func (a *Appointment) Validate() error {
	if a.SlotID == uuid.Nil || a.ProfessionalID == uuid.Nil || a.ServiceID == uuid.Nil || a.ClinicID == uuid.Nil {
		return fmt.Errorf("slot, professional, service and clinic are required")
	}
	if a.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if !a.StartAt.Before(a.EndAt) {
		return fmt.Errorf("start_at must be before end_at")
	}
	return nil
}

// Active reports whether the appointment still occupies its slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}
