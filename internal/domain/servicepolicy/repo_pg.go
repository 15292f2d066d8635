package servicepolicy

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/slotengine/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

var policyCols = []string{
	"service_id", "clinic_id", "pre_buffer_minutes", "post_buffer_minutes", "min_notice_hours",
	"max_advance_days", "allow_simultaneous", "max_simultaneous", "cancellation_notice_hours",
	"created_at", "updated_at",
}

func scanPolicy(row pgx.Row) (*ServicePolicy, error) {
	var p ServicePolicy
	err := row.Scan(&p.ServiceID, &p.ClinicID, &p.PreBufferMinutes, &p.PostBufferMinutes,
		&p.MinNoticeHours, &p.MaxAdvanceDays, &p.AllowSimultaneous, &p.MaxSimultaneous,
		&p.CancellationNoticeHours, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Get(ctx context.Context, serviceID, clinicID uuid.UUID) (*ServicePolicy, error) {
	query, args, err := db.Psql.Select(policyCols...).From("service_policy").
		Where(sq.Eq{"service_id": serviceID, "clinic_id": clinicID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build service policy query: %w", err)
	}
	return scanPolicy(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*ServicePolicy, error) {
	query, args, err := db.Psql.Select(policyCols...).From("service_policy").
		Where(sq.Eq{"clinic_id": clinicID}).OrderBy("service_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build service policy list: %w", err)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ServicePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) Upsert(ctx context.Context, p *ServicePolicy) error {
	query, args, err := db.Psql.Insert("service_policy").
		Columns("service_id", "clinic_id", "pre_buffer_minutes", "post_buffer_minutes", "min_notice_hours",
			"max_advance_days", "allow_simultaneous", "max_simultaneous", "cancellation_notice_hours").
		Values(p.ServiceID, p.ClinicID, p.PreBufferMinutes, p.PostBufferMinutes, p.MinNoticeHours,
			p.MaxAdvanceDays, p.AllowSimultaneous, p.MaxSimultaneous, p.CancellationNoticeHours).
		Suffix(`ON CONFLICT (service_id, clinic_id) DO UPDATE SET
			pre_buffer_minutes = EXCLUDED.pre_buffer_minutes, post_buffer_minutes = EXCLUDED.post_buffer_minutes,
			min_notice_hours = EXCLUDED.min_notice_hours, max_advance_days = EXCLUDED.max_advance_days,
			allow_simultaneous = EXCLUDED.allow_simultaneous, max_simultaneous = EXCLUDED.max_simultaneous,
			cancellation_notice_hours = EXCLUDED.cancellation_notice_hours, updated_at = NOW()
			RETURNING created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build service policy upsert: %w", err)
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, serviceID, clinicID uuid.UUID) error {
	query, args, err := db.Psql.Delete("service_policy").
		Where(sq.Eq{"service_id": serviceID, "clinic_id": clinicID}).ToSql()
	if err != nil {
		return fmt.Errorf("build service policy delete: %w", err)
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
