package closure

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicbook/slotengine/pkg/civil"
)

var ErrNotFound = errors.New("closure period not found")

type Filter struct {
	ClinicID       *uuid.UUID
	ProfessionalID *uuid.UUID
	ActiveOnly     bool
	Limit          int
	Offset         int
}

type Repository interface {
	Create(ctx context.Context, c *ClosurePeriod) error
	Get(ctx context.Context, id uuid.UUID) (*ClosurePeriod, error)
	Update(ctx context.Context, c *ClosurePeriod) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter) ([]*ClosurePeriod, int, error)
	// Candidates returns active closures of the clinic, clinic-wide or for
	// the professional, whose first occurrence starts on or before day and
	// that can still apply on day. Callers confirm with AppliesOn.
	Candidates(ctx context.Context, clinicID, professionalID uuid.UUID, day civil.Date) ([]*ClosurePeriod, error)
}
