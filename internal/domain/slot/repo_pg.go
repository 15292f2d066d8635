package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/slotengine/internal/platform/db"
	"github.com/clinicbook/slotengine/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

var slotCols = []string{
	"id", "professional_id", "service_id", "clinic_id", "start_at", "duration_minutes",
	"available", "version", "generation", "held_by", "held_until", "appointment_id",
	"created_at", "updated_at",
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(&s.ID, &s.ProfessionalID, &s.ServiceID, &s.ClinicID, &s.StartAt, &s.DurationMinutes,
		&s.Available, &s.Version, &s.Generation, &s.HeldBy, &s.HeldUntil, &s.AppointmentID,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) queryAll(ctx context.Context, b sq.SelectBuilder) ([]*Slot, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build slot query: %w", err)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, s *Slot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query, args, err := db.Psql.Insert("slot").
		Columns("id", "professional_id", "service_id", "clinic_id", "start_at", "duration_minutes",
			"available", "version", "generation").
		Values(s.ID, s.ProfessionalID, s.ServiceID, s.ClinicID, s.StartAt, s.DurationMinutes,
			s.Available, s.Version, s.Generation).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build slot insert: %w", err)
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&s.CreatedAt, &s.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Slot, error) {
	query, args, err := db.Psql.Select(slotCols...).From("slot").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build slot query: %w", err)
	}
	return scanSlot(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
}

func (r *repoPG) CompareAndSwap(ctx context.Context, next *Slot, expected int) error {
	query, args, err := db.Psql.Update("slot").
		Set("available", next.Available).
		Set("held_by", next.HeldBy).
		Set("held_until", next.HeldUntil).
		Set("appointment_id", next.AppointmentID).
		Set("generation", next.Generation).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": next.ID, "version": expected}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build slot update: %w", err)
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&next.Version, &next.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleVersion
	}
	return err
}

func openWhere(f Filter, now time.Time) sq.And {
	where := sq.And{
		sq.Eq{"available": true},
		sq.Or{sq.Eq{"held_until": nil}, sq.Lt{"held_until": now}},
	}
	if f.ProfessionalID != nil {
		where = append(where, sq.Eq{"professional_id": *f.ProfessionalID})
	}
	if f.ServiceID != nil {
		where = append(where, sq.Eq{"service_id": *f.ServiceID})
	}
	if f.ClinicID != nil {
		where = append(where, sq.Eq{"clinic_id": *f.ClinicID})
	}
	if !f.From.IsZero() {
		where = append(where, sq.GtOrEq{"start_at": f.From})
	}
	if !f.To.IsZero() {
		where = append(where, sq.Lt{"start_at": f.To})
	}
	return where
}

func (r *repoPG) ListOpen(ctx context.Context, f Filter, now time.Time) ([]*Slot, int, error) {
	where := openWhere(f, now)
	countQuery, countArgs, err := db.Psql.Select("COUNT(*)").From("slot").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build slot count: %w", err)
	}
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := pagination.New(f.Limit, f.Offset)
	items, err := r.queryAll(ctx, page.Apply(
		db.Psql.Select(slotCols...).From("slot").Where(where).OrderBy("start_at", "id")))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*Slot, error) {
	return r.queryAll(ctx, db.Psql.Select(slotCols...).From("slot").
		Where(sq.Eq{"available": true}).
		Where(sq.NotEq{"held_until": nil}).
		Where(sq.Lt{"held_until": now}).
		OrderBy("held_until").
		Limit(uint64(limit)))
}

func (r *repoPG) ListOccupied(ctx context.Context, professionalID uuid.UUID, from, to, now time.Time) ([]*Slot, error) {
	return r.queryAll(ctx, db.Psql.Select(slotCols...).From("slot").
		Where(sq.Eq{"professional_id": professionalID}).
		Where(sq.Lt{"start_at": to}).
		Where("start_at + make_interval(mins => duration_minutes) > ?", from).
		Where(sq.Or{sq.Eq{"available": false}, sq.GtOrEq{"held_until": now}}).
		OrderBy("start_at"))
}
