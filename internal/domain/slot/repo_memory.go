package slot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/slotengine/pkg/pagination"
)

type startKey struct {
	professionalID uuid.UUID
	serviceID      uuid.UUID
	startAt        int64
}

// MemoryRepo is an in-process Repository. CompareAndSwap is atomic under
// the repo's own lock, so it is safe without an enclosing transaction.
type MemoryRepo struct {
	mu     sync.RWMutex
	slots  map[uuid.UUID]Slot
	starts map[startKey]uuid.UUID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		slots:  make(map[uuid.UUID]Slot),
		starts: make(map[startKey]uuid.UUID),
	}
}

func keyOf(s *Slot) startKey {
	return startKey{s.ProfessionalID, s.ServiceID, s.StartAt.UnixNano()}
}

func (m *MemoryRepo) Create(_ context.Context, s *Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := keyOf(s)
	if _, exists := m.starts[key]; exists {
		return ErrDuplicate
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	m.slots[s.ID] = copySlot(s)
	m.starts[key] = s.ID
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, id uuid.UUID) (*Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copySlot(&s)
	return &out, nil
}

func (m *MemoryRepo) CompareAndSwap(_ context.Context, next *Slot, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.slots[next.ID]
	if !ok || cur.Version != expected {
		return ErrStaleVersion
	}
	cur.Available = next.Available
	cur.HeldBy = next.HeldBy
	cur.HeldUntil = next.HeldUntil
	cur.AppointmentID = next.AppointmentID
	cur.Generation = next.Generation
	cur.Version = expected + 1
	cur.UpdatedAt = time.Now().UTC()
	m.slots[next.ID] = copySlot(&cur)

	next.Version = cur.Version
	next.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemoryRepo) ListOpen(_ context.Context, f Filter, now time.Time) ([]*Slot, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*Slot
	for _, s := range m.slots {
		if !s.Available || s.IsHeld(now) {
			continue
		}
		if f.ProfessionalID != nil && s.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.ServiceID != nil && s.ServiceID != *f.ServiceID {
			continue
		}
		if f.ClinicID != nil && s.ClinicID != *f.ClinicID {
			continue
		}
		if !f.From.IsZero() && s.StartAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !s.StartAt.Before(f.To) {
			continue
		}
		out := copySlot(&s)
		all = append(all, &out)
	}
	sortByStart(all)
	lo, hi := pagination.New(f.Limit, f.Offset).Bounds(len(all))
	return all[lo:hi], len(all), nil
}

func (m *MemoryRepo) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]*Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*Slot
	for _, s := range m.slots {
		if s.Available && s.HoldLapsed(now) {
			out := copySlot(&s)
			items = append(items, &out)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].HeldUntil.Before(*items[j].HeldUntil) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryRepo) ListOccupied(_ context.Context, professionalID uuid.UUID, from, to, now time.Time) ([]*Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*Slot
	for _, s := range m.slots {
		if s.ProfessionalID != professionalID || !s.Overlaps(from, to) || !s.Occupied(now) {
			continue
		}
		out := copySlot(&s)
		items = append(items, &out)
	}
	sortByStart(items)
	return items, nil
}

func sortByStart(items []*Slot) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].StartAt.Equal(items[j].StartAt) {
			return items[i].StartAt.Before(items[j].StartAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}

// copySlot detaches pointer fields so callers cannot mutate stored state.
func copySlot(s *Slot) Slot {
	out := *s
	if s.HeldBy != nil {
		v := *s.HeldBy
		out.HeldBy = &v
	}
	if s.HeldUntil != nil {
		v := *s.HeldUntil
		out.HeldUntil = &v
	}
	if s.AppointmentID != nil {
		v := *s.AppointmentID
		out.AppointmentID = &v
	}
	return out
}
