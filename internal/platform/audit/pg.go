package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/slotengine/internal/platform/db"
)

// PGSink appends events to the reservation_event table. It joins the
// transaction bound to ctx when there is one.
type PGSink struct {
	pool *pgxpool.Pool
}

func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

func (s *PGSink) Record(ctx context.Context, e Event) error {
	stamp(&e)
	query, args, err := db.Psql.Insert("reservation_event").
		Columns("id", "type", "slot_id", "client_id", "actor", "appointment_id",
			"version", "held_until", "detail", "recorded_at").
		Values(e.ID, string(e.Type), e.SlotID, e.ClientID, e.Actor, e.AppointmentID,
			e.Version, e.HeldUntil, e.Detail, e.RecordedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build event insert: %w", err)
	}
	if _, err := db.Conn(ctx, s.pool).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("audit: insert %s: %w", e.Type, err)
	}
	return nil
}

func (s *PGSink) ListBySlot(ctx context.Context, slotID uuid.UUID, limit int) ([]Event, error) {
	b := db.Psql.Select("id", "type", "slot_id", "client_id", "actor", "appointment_id",
		"version", "held_until", "detail", "recorded_at").
		From("reservation_event").
		Where("slot_id = ?", slotID).
		OrderBy("recorded_at ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build event query: %w", err)
	}
	rows, err := db.Conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.ID, &typ, &e.SlotID, &e.ClientID, &e.Actor, &e.AppointmentID,
			&e.Version, &e.HeldUntil, &e.Detail, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}
