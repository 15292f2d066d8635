package servicepolicy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ServicePolicy holds the booking rules of one service type at one clinic.
type ServicePolicy struct {
	ServiceID               uuid.UUID `json:"service_id"`
	ClinicID                uuid.UUID `json:"clinic_id"`
	PreBufferMinutes        int       `json:"pre_buffer_minutes"`
	PostBufferMinutes       int       `json:"post_buffer_minutes"`
	MinNoticeHours          int       `json:"min_notice_hours"`
	MaxAdvanceDays          int       `json:"max_advance_days"`
	AllowSimultaneous       bool      `json:"allow_simultaneous"`
	MaxSimultaneous         int       `json:"max_simultaneous"`
	CancellationNoticeHours int       `json:"cancellation_notice_hours"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (p *ServicePolicy) Validate() error {
	if p.ServiceID == uuid.Nil || p.ClinicID == uuid.Nil {
		return fmt.Errorf("service_id and clinic_id are required")
	}
	if p.PreBufferMinutes < 0 || p.PostBufferMinutes < 0 || p.MinNoticeHours < 0 ||
		p.MaxAdvanceDays < 0 || p.MaxSimultaneous < 0 || p.CancellationNoticeHours < 0 {
		return fmt.Errorf("policy values must not be negative")
	}
	if p.AllowSimultaneous && p.MaxSimultaneous < 1 {
		return fmt.Errorf("max_simultaneous must be at least 1 when simultaneous booking is allowed")
	}
	return nil
}

// PreBuffer is the idle time required before the service.
func (p *ServicePolicy) PreBuffer() time.Duration {
	return time.Duration(p.PreBufferMinutes) * time.Minute
}

// PostBuffer is the idle time required after the service.
func (p *ServicePolicy) PostBuffer() time.Duration {
	return time.Duration(p.PostBufferMinutes) * time.Minute
}

// SimultaneousLimit is how many overlapping bookings of this service one
// professional may carry. A nil policy allows exactly one.
func (p *ServicePolicy) SimultaneousLimit() int {
	if p == nil || !p.AllowSimultaneous {
		return 1
	}
	return p.MaxSimultaneous
}
