// Package audit records reservation lifecycle events and fans them out to
// the configured sinks.
package audit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	SlotHeld      EventType = "slot.held"
	SlotReleased  EventType = "slot.released"
	SlotConfirmed EventType = "slot.confirmed"
	SlotExpired   EventType = "slot.expired"
	SlotReopened  EventType = "slot.reopened"
)

// Event is one reservation state transition. Version is the slot version
// after the transition.
type Event struct {
	ID            uuid.UUID  `json:"id"`
	Type          EventType  `json:"type"`
	SlotID        uuid.UUID  `json:"slot_id"`
	ClientID      string     `json:"client_id,omitempty"`
	Actor         string     `json:"actor,omitempty"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Version       int        `json:"version"`
	HeldUntil     *time.Time `json:"held_until,omitempty"`
	Detail        string     `json:"detail,omitempty"`
	RecordedAt    time.Time  `json:"recorded_at"`
}

type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Reader returns the recorded history of a slot, oldest first.
type Reader interface {
	ListBySlot(ctx context.Context, slotID uuid.UUID, limit int) ([]Event, error)
}

func stamp(e *Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
}

// Fanout delivers each event to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, e Event) error {
	stamp(&e)
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the structured log.
type LogSink struct {
	Logger zerolog.Logger
}

func (l LogSink) Record(_ context.Context, e Event) error {
	ev := l.Logger.Info().
		Str("event", string(e.Type)).
		Str("slot_id", e.SlotID.String()).
		Int("version", e.Version)
	if e.ClientID != "" {
		ev = ev.Str("client_id", e.ClientID)
	}
	if e.Actor != "" {
		ev = ev.Str("actor", e.Actor)
	}
	if e.AppointmentID != nil {
		ev = ev.Str("appointment_id", e.AppointmentID.String())
	}
	if e.HeldUntil != nil {
		ev = ev.Time("held_until", *e.HeldUntil)
	}
	ev.Msg("reservation event")
	return nil
}

// Recorder keeps events in memory. It backs the memory store and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(_ context.Context, e Event) error {
	stamp(&e)
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists recorded event types for one slot in order.
func (r *Recorder) Types(slotID uuid.UUID) []EventType {
	var out []EventType
	for _, e := range r.Events() {
		if e.SlotID == slotID {
			out = append(out, e.Type)
		}
	}
	return out
}

func (r *Recorder) ListBySlot(_ context.Context, slotID uuid.UUID, limit int) ([]Event, error) {
	var out []Event
	for _, e := range r.Events() {
		if e.SlotID == slotID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
