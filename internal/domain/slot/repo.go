package slot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("slot not found")
	ErrDuplicate    = errors.New("slot already exists for professional, service and start")
	ErrStaleVersion = errors.New("slot version changed")
)

// Filter selects open slots: available and not under a live hold.
type Filter struct {
	ProfessionalID *uuid.UUID
	ServiceID      *uuid.UUID
	ClinicID       *uuid.UUID
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}

type Repository interface {
	Create(ctx context.Context, s *Slot) error
	Get(ctx context.Context, id uuid.UUID) (*Slot, error)
	// CompareAndSwap persists next's reservation fields when the stored
	// version equals expected, and sets next.Version to expected+1.
	// It returns ErrStaleVersion when the stored version differs.
	CompareAndSwap(ctx context.Context, next *Slot, expected int) error
	ListOpen(ctx context.Context, f Filter, now time.Time) ([]*Slot, int, error)
	// ListExpiredHolds returns available slots whose hold lapsed before now,
	// oldest expiry first.
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*Slot, error)
	// ListOccupied returns the professional's slots that overlap [from, to)
	// and are confirmed or under a live hold at now.
	ListOccupied(ctx context.Context, professionalID uuid.UUID, from, to, now time.Time) ([]*Slot, error)
}
