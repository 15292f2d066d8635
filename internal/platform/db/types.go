package db

import (
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinicbook/slotengine/pkg/civil"
)

// Psql builds PostgreSQL statements with $n placeholders.
var Psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

// TimeParam encodes a time of day for a TIME column.
func TimeParam(t civil.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

// NullableTimeParam encodes an optional time of day; nil becomes NULL.
func NullableTimeParam(t *civil.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return TimeParam(*t)
}

// TimeOfDay decodes a TIME column value.
func TimeOfDay(v pgtype.Time) civil.TimeOfDay {
	return civil.TimeOfDay(v.Microseconds / int64(time.Minute/time.Microsecond))
}

// NullableTimeOfDay decodes an optional TIME column value.
func NullableTimeOfDay(v pgtype.Time) *civil.TimeOfDay {
	if !v.Valid {
		return nil
	}
	t := TimeOfDay(v)
	return &t
}
