package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/slotengine/pkg/pagination"
)

type generationKey struct {
	slotID     uuid.UUID
	generation int
}

// MemoryRepo is an in-process Repository that enforces one active
// appointment per slot generation.
type MemoryRepo struct {
	mu     sync.RWMutex
	items  map[uuid.UUID]Appointment
	active map[generationKey]uuid.UUID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		items:  make(map[uuid.UUID]Appointment),
		active: make(map[generationKey]uuid.UUID),
	}
}

func (m *MemoryRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := generationKey{a.SlotID, a.SlotGeneration}
	if a.Active() {
		if _, taken := m.active[key]; taken {
			return ErrSlotTaken
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.items[a.ID] = *a
	if a.Active() {
		m.active[key] = a.ID
	}
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryRepo) ListByClient(_ context.Context, clientID string, limit, offset int) ([]*Appointment, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*Appointment
	for _, a := range m.items {
		if a.ClientID == clientID {
			a := a
			all = append(all, &a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartAt.After(all[j].StartAt) })
	lo, hi := pagination.New(limit, offset).Bounds(len(all))
	return all[lo:hi], len(all), nil
}

func (m *MemoryRepo) UpdateStatus(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[a.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = a.Status
	cur.CancelledAt = a.CancelledAt
	cur.CancellationReason = a.CancellationReason
	cur.UpdatedAt = time.Now().UTC()
	m.items[a.ID] = cur
	if !cur.Active() {
		key := generationKey{cur.SlotID, cur.SlotGeneration}
		if m.active[key] == cur.ID {
			delete(m.active, key)
		}
	}
	a.UpdatedAt = cur.UpdatedAt
	return nil
}
