package appointment

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/slotengine/internal/platform/db"
	"github.com/clinicbook/slotengine/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

var apptCols = []string{
	"id", "slot_id", "slot_generation", "professional_id", "service_id", "clinic_id", "client_id",
	"patient_id", "reason", "notes", "status", "start_at", "end_at", "cancelled_at",
	"cancellation_reason", "created_at", "updated_at",
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.SlotID, &a.SlotGeneration, &a.ProfessionalID, &a.ServiceID, &a.ClinicID,
		&a.ClientID, &a.PatientID, &a.Reason, &a.Notes, &status, &a.StartAt, &a.EndAt, &a.CancelledAt,
		&a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query, args, err := db.Psql.Insert("appointment").
		Columns("id", "slot_id", "slot_generation", "professional_id", "service_id", "clinic_id",
			"client_id", "patient_id", "reason", "notes", "status", "start_at", "end_at").
		Values(a.ID, a.SlotID, a.SlotGeneration, a.ProfessionalID, a.ServiceID, a.ClinicID,
			a.ClientID, a.PatientID, a.Reason, a.Notes, string(a.Status), a.StartAt, a.EndAt).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build appointment insert: %w", err)
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query, args, err := db.Psql.Select(apptCols...).From("appointment").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build appointment query: %w", err)
	}
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
}

func (r *repoPG) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]*Appointment, int, error) {
	where := sq.Eq{"client_id": clientID}
	countQuery, countArgs, err := db.Psql.Select("COUNT(*)").From("appointment").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build appointment count: %w", err)
	}
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := pagination.New(limit, offset).Apply(
		db.Psql.Select(apptCols...).From("appointment").Where(where).OrderBy("start_at DESC", "id")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build appointment list: %w", err)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, a *Appointment) error {
	query, args, err := db.Psql.Update("appointment").
		Set("status", string(a.Status)).
		Set("cancelled_at", a.CancelledAt).
		Set("cancellation_reason", a.CancellationReason).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": a.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build appointment update: %w", err)
	}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
