package schedulerule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/slotengine/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

var ruleCols = []string{
	"id", "professional_id", "weekday", "is_available", "start_time", "end_time",
	"break_start", "break_end", "min_notice_hours", "max_advance_days",
	"buffer_minutes", "max_appointments_per_hour", "created_at", "updated_at",
}

func scanRule(row pgx.Row) (*ScheduleRule, error) {
	var (
		r                  ScheduleRule
		weekday            int16
		start, end         pgtype.Time
		breakStart, breakE pgtype.Time
	)
	err := row.Scan(&r.ID, &r.ProfessionalID, &weekday, &r.IsAvailable, &start, &end,
		&breakStart, &breakE, &r.MinNoticeHours, &r.MaxAdvanceDays,
		&r.BufferMinutes, &r.MaxAppointmentsPerHour, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Weekday = time.Weekday(weekday)
	r.StartTime = db.TimeOfDay(start)
	r.EndTime = db.TimeOfDay(end)
	r.BreakStart = db.NullableTimeOfDay(breakStart)
	r.BreakEnd = db.NullableTimeOfDay(breakE)
	return &r, nil
}

func (r *repoPG) Get(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*ScheduleRule, error) {
	query, args, err := db.Psql.Select(ruleCols...).From("schedule_rule").
		Where("professional_id = ? AND weekday = ?", professionalID, int16(weekday)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build schedule rule query: %w", err)
	}
	return scanRule(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
}

func (r *repoPG) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]*ScheduleRule, error) {
	query, args, err := db.Psql.Select(ruleCols...).From("schedule_rule").
		Where("professional_id = ?", professionalID).
		OrderBy("weekday").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build schedule rule list: %w", err)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ScheduleRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rule)
	}
	return items, rows.Err()
}

func (r *repoPG) Upsert(ctx context.Context, rule *ScheduleRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	query, args, err := db.Psql.Insert("schedule_rule").
		Columns("id", "professional_id", "weekday", "is_available", "start_time", "end_time",
			"break_start", "break_end", "min_notice_hours", "max_advance_days",
			"buffer_minutes", "max_appointments_per_hour").
		Values(rule.ID, rule.ProfessionalID, int16(rule.Weekday), rule.IsAvailable,
			db.TimeParam(rule.StartTime), db.TimeParam(rule.EndTime),
			db.NullableTimeParam(rule.BreakStart), db.NullableTimeParam(rule.BreakEnd),
			rule.MinNoticeHours, rule.MaxAdvanceDays, rule.BufferMinutes, rule.MaxAppointmentsPerHour).
		Suffix(`ON CONFLICT (professional_id, weekday) DO UPDATE SET
			is_available = EXCLUDED.is_available, start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time, break_start = EXCLUDED.break_start,
			break_end = EXCLUDED.break_end, min_notice_hours = EXCLUDED.min_notice_hours,
			max_advance_days = EXCLUDED.max_advance_days, buffer_minutes = EXCLUDED.buffer_minutes,
			max_appointments_per_hour = EXCLUDED.max_appointments_per_hour, updated_at = NOW()
			RETURNING id, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule rule upsert: %w", err)
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) error {
	query, args, err := db.Psql.Delete("schedule_rule").
		Where("professional_id = ? AND weekday = ?", professionalID, int16(weekday)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule rule delete: %w", err)
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
