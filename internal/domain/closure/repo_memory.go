package closure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/slotengine/pkg/civil"
	"github.com/clinicbook/slotengine/pkg/pagination"
)

// MemoryRepo is an in-process Repository.
type MemoryRepo struct {
	mu       sync.RWMutex
	closures map[uuid.UUID]ClosurePeriod
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{closures: make(map[uuid.UUID]ClosurePeriod)}
}

func (m *MemoryRepo) Create(_ context.Context, c *ClosurePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	m.closures[c.ID] = *c
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, id uuid.UUID) (*ClosurePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.closures[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryRepo) Update(_ context.Context, c *ClosurePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.closures[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.closures[c.ID] = *c
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.closures[id]; !ok {
		return ErrNotFound
	}
	delete(m.closures, id)
	return nil
}

func (m *MemoryRepo) List(_ context.Context, f Filter) ([]*ClosurePeriod, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*ClosurePeriod
	for _, c := range m.closures {
		if f.ClinicID != nil && c.ClinicID != *f.ClinicID {
			continue
		}
		if f.ProfessionalID != nil && (c.ProfessionalID == nil || *c.ProfessionalID != *f.ProfessionalID) {
			continue
		}
		if f.ActiveOnly && !c.Active {
			continue
		}
		c := c
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].StartDate != all[j].StartDate {
			return all[i].StartDate.Before(all[j].StartDate)
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	lo, hi := pagination.New(f.Limit, f.Offset).Bounds(len(all))
	return all[lo:hi], len(all), nil
}

func (m *MemoryRepo) Candidates(_ context.Context, clinicID, professionalID uuid.UUID, day civil.Date) ([]*ClosurePeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*ClosurePeriod
	for _, c := range m.closures {
		if !c.Active || c.ClinicID != clinicID {
			continue
		}
		if c.ProfessionalID != nil && *c.ProfessionalID != professionalID {
			continue
		}
		if c.StartDate.After(day) || (c.Recurrence == RecurrenceNone && c.EndDate.Before(day)) {
			continue
		}
		c := c
		items = append(items, &c)
	}
	return items, nil
}
