package servicepolicy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, serviceID, clinicID uuid.UUID) (*ServicePolicy, error) {
	return s.repo.Get(ctx, serviceID, clinicID)
}

// Lookup returns the policy or nil when none is configured.
func (s *Service) Lookup(ctx context.Context, serviceID, clinicID uuid.UUID) (*ServicePolicy, error) {
	p, err := s.repo.Get(ctx, serviceID, clinicID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load service policy: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID) ([]*ServicePolicy, error) {
	return s.repo.ListByClinic(ctx, clinicID)
}

func (s *Service) Put(ctx context.Context, p *ServicePolicy) error {
	if !p.AllowSimultaneous && p.MaxSimultaneous == 0 {
		p.MaxSimultaneous = 1
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("store service policy: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, serviceID, clinicID uuid.UUID) error {
	return s.repo.Delete(ctx, serviceID, clinicID)
}
