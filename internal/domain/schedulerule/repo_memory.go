package schedulerule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ruleKey struct {
	professionalID uuid.UUID
	weekday        time.Weekday
}

// MemoryRepo is an in-process Repository.
type MemoryRepo struct {
	mu    sync.RWMutex
	rules map[ruleKey]ScheduleRule
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rules: make(map[ruleKey]ScheduleRule)}
}

func (m *MemoryRepo) Get(_ context.Context, professionalID uuid.UUID, weekday time.Weekday) (*ScheduleRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[ruleKey{professionalID, weekday}]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryRepo) ListByProfessional(_ context.Context, professionalID uuid.UUID) ([]*ScheduleRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*ScheduleRule
	for k, r := range m.rules {
		if k.professionalID == professionalID {
			r := r
			items = append(items, &r)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Weekday < items[j].Weekday })
	return items, nil
}

func (m *MemoryRepo) Upsert(_ context.Context, r *ScheduleRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ruleKey{r.ProfessionalID, r.Weekday}
	now := time.Now().UTC()
	if existing, ok := m.rules[key]; ok {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
	} else {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.rules[key] = *r
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, professionalID uuid.UUID, weekday time.Weekday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ruleKey{professionalID, weekday}
	if _, ok := m.rules[key]; !ok {
		return ErrNotFound
	}
	delete(m.rules, key)
	return nil
}
