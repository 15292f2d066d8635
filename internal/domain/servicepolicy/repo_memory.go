package servicepolicy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type policyKey struct {
	serviceID uuid.UUID
	clinicID  uuid.UUID
}

// MemoryRepo is an in-process Repository.
type MemoryRepo struct {
	mu       sync.RWMutex
	policies map[policyKey]ServicePolicy
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{policies: make(map[policyKey]ServicePolicy)}
}

func (m *MemoryRepo) Get(_ context.Context, serviceID, clinicID uuid.UUID) (*ServicePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[policyKey{serviceID, clinicID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepo) ListByClinic(_ context.Context, clinicID uuid.UUID) ([]*ServicePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*ServicePolicy
	for k, p := range m.policies {
		if k.clinicID == clinicID {
			p := p
			items = append(items, &p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ServiceID.String() < items[j].ServiceID.String() })
	return items, nil
}

func (m *MemoryRepo) Upsert(_ context.Context, p *ServicePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := policyKey{p.ServiceID, p.ClinicID}
	now := time.Now().UTC()
	if existing, ok := m.policies[key]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.policies[key] = *p
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, serviceID, clinicID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := policyKey{serviceID, clinicID}
	if _, ok := m.policies[key]; !ok {
		return ErrNotFound
	}
	delete(m.policies, key)
	return nil
}
