package schedulerule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("schedule rule not found")

type Repository interface {
	Get(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*ScheduleRule, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*ScheduleRule, error)
	// Upsert inserts or replaces the rule keyed by (professional, weekday).
	Upsert(ctx context.Context, r *ScheduleRule) error
	Delete(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) error
}
