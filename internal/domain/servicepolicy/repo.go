package servicepolicy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("service policy not found")

type Repository interface {
	Get(ctx context.Context, serviceID, clinicID uuid.UUID) (*ServicePolicy, error)
	ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*ServicePolicy, error)
	// Upsert inserts or replaces the policy keyed by (service, clinic).
	Upsert(ctx context.Context, p *ServicePolicy) error
	Delete(ctx context.Context, serviceID, clinicID uuid.UUID) error
}
