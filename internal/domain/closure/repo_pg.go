package closure

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/slotengine/internal/platform/db"
	"github.com/clinicbook/slotengine/pkg/civil"
	"github.com/clinicbook/slotengine/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

var closureCols = []string{
	"id", "clinic_id", "professional_id", "start_date", "end_date", "start_time", "end_time",
	"recurrence", "active", "reason", "created_at", "updated_at",
}

func scanClosure(row pgx.Row) (*ClosurePeriod, error) {
	var (
		c                  ClosurePeriod
		startDate, endDate time.Time
		startTime, endTime pgtype.Time
		recurrence         string
	)
	err := row.Scan(&c.ID, &c.ClinicID, &c.ProfessionalID, &startDate, &endDate, &startTime, &endTime,
		&recurrence, &c.Active, &c.Reason, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.StartDate = civil.DateOf(startDate)
	c.EndDate = civil.DateOf(endDate)
	c.StartTime = db.NullableTimeOfDay(startTime)
	c.EndTime = db.NullableTimeOfDay(endTime)
	c.Recurrence = Recurrence(recurrence)
	return &c, nil
}

func (r *repoPG) queryAll(ctx context.Context, b sq.SelectBuilder) ([]*ClosurePeriod, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build closure query: %w", err)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ClosurePeriod
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, c *ClosurePeriod) error {
	c.ID = uuid.New()
	query, args, err := db.Psql.Insert("closure_period").
		Columns("id", "clinic_id", "professional_id", "start_date", "end_date", "start_time", "end_time",
			"recurrence", "active", "reason").
		Values(c.ID, c.ClinicID, c.ProfessionalID, c.StartDate.Time(), c.EndDate.Time(),
			db.NullableTimeParam(c.StartTime), db.NullableTimeParam(c.EndTime),
			string(c.Recurrence), c.Active, c.Reason).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build closure insert: %w", err)
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*ClosurePeriod, error) {
	query, args, err := db.Psql.Select(closureCols...).From("closure_period").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build closure query: %w", err)
	}
	return scanClosure(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
}

func (r *repoPG) Update(ctx context.Context, c *ClosurePeriod) error {
	query, args, err := db.Psql.Update("closure_period").
		Set("clinic_id", c.ClinicID).
		Set("professional_id", c.ProfessionalID).
		Set("start_date", c.StartDate.Time()).
		Set("end_date", c.EndDate.Time()).
		Set("start_time", db.NullableTimeParam(c.StartTime)).
		Set("end_time", db.NullableTimeParam(c.EndTime)).
		Set("recurrence", string(c.Recurrence)).
		Set("active", c.Active).
		Set("reason", c.Reason).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": c.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build closure update: %w", err)
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := db.Psql.Delete("closure_period").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build closure delete: %w", err)
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

func (r *repoPG) List(ctx context.Context, f Filter) ([]*ClosurePeriod, int, error) {
	where := sq.And{}
	if f.ClinicID != nil {
		where = append(where, sq.Eq{"clinic_id": *f.ClinicID})
	}
	if f.ProfessionalID != nil {
		where = append(where, sq.Eq{"professional_id": *f.ProfessionalID})
	}
	if f.ActiveOnly {
		where = append(where, sq.Eq{"active": true})
	}

	countQuery, countArgs, err := db.Psql.Select("COUNT(*)").From("closure_period").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build closure count: %w", err)
	}
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := pagination.New(f.Limit, f.Offset)
	items, err := r.queryAll(ctx, page.Apply(
		db.Psql.Select(closureCols...).From("closure_period").Where(where).OrderBy("start_date", "id")))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) Candidates(ctx context.Context, clinicID, professionalID uuid.UUID, day civil.Date) ([]*ClosurePeriod, error) {
	return r.queryAll(ctx, db.Psql.Select(closureCols...).From("closure_period").
		Where(sq.Eq{"clinic_id": clinicID, "active": true}).
		Where(sq.Or{sq.Eq{"professional_id": nil}, sq.Eq{"professional_id": professionalID}}).
		Where(sq.LtOrEq{"start_date": day.Time()}).
		Where(sq.Or{sq.NotEq{"recurrence": string(RecurrenceNone)}, sq.GtOrEq{"end_date": day.Time()}}))
}
