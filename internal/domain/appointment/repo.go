package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("appointment not found")
	// ErrSlotTaken means an active appointment already holds the slot generation.
	ErrSlotTaken = errors.New("slot generation already has an active appointment")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit, offset int) ([]*Appointment, int, error)
	// UpdateStatus persists Status, CancelledAt and CancellationReason.
	UpdateStatus(ctx context.Context, a *Appointment) error
}
