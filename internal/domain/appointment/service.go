package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotActive = errors.New("appointment is not active")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Book records a confirmed appointment. Called by the reservation manager
// inside the atomic unit that consumes the slot.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.Status == "" {
		a.Status = StatusConfirmed
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByClient(ctx, clientID, limit, offset)
}

// Cancel marks an active appointment cancelled at the given instant.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, at time.Time) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Active() {
		return nil, ErrNotActive
	}
	a.Status = StatusCancelled
	a.CancelledAt = &at
	if reason != "" {
		a.CancellationReason = &reason
	}
	if err := s.repo.UpdateStatus(ctx, a); err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	return a, nil
}
