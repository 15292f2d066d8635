package closure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/slotengine/pkg/civil"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, c *ClosurePeriod) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return fmt.Errorf("create closure: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ClosurePeriod, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, c *ClosurePeriod) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*ClosurePeriod, int, error) {
	return s.repo.List(ctx, f)
}

// On returns the closures, recurrence expanded, that cover day for the
// professional at the clinic.
func (s *Service) On(ctx context.Context, clinicID, professionalID uuid.UUID, day civil.Date) ([]*ClosurePeriod, error) {
	candidates, err := s.repo.Candidates(ctx, clinicID, professionalID, day)
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	var out []*ClosurePeriod
	for _, c := range candidates {
		if c.AppliesOn(day) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Blocking returns the first closure that blocks [start, end) in loc, or nil.
func (s *Service) Blocking(ctx context.Context, clinicID, professionalID uuid.UUID, start, end time.Time, loc *time.Location) (*ClosurePeriod, error) {
	closures, err := s.On(ctx, clinicID, professionalID, civil.DateOf(start.In(loc)))
	if err != nil {
		return nil, err
	}
	for _, c := range closures {
		if c.Blocks(start, end, loc) {
			return c, nil
		}
	}
	return nil, nil
}
