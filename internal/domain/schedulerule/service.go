package schedulerule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*ScheduleRule, error) {
	return s.repo.Get(ctx, professionalID, weekday)
}

func (s *Service) List(ctx context.Context, professionalID uuid.UUID) ([]*ScheduleRule, error) {
	return s.repo.ListByProfessional(ctx, professionalID)
}

// Put validates and stores the rule for its (professional, weekday).
func (s *Service) Put(ctx context.Context, r *ScheduleRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, r); err != nil {
		return fmt.Errorf("store schedule rule: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) error {
	return s.repo.Delete(ctx, professionalID, weekday)
}
